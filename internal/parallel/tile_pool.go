package parallel

import "sync"

// TileBufferPool provides efficient reuse of the []float32 sample buffers
// the coarse-to-fine matcher fills with a tile's exposure-normalized
// pyramid samples before computing SAD cost. Matching visits
// O(tiles * search window) candidate offsets, and allocating a fresh
// buffer per candidate would dominate GC time; pooling by buffer length
// keeps that allocation off the hot path.
//
// Thread safety: TileBufferPool is safe for concurrent use.
type TileBufferPool struct {
	// pools holds a separate sync.Pool per buffer length (tileSize^2),
	// since tile size varies by pyramid level (Tℓ ∈ {16,16,16,8} by
	// default).
	pools sync.Map
}

// NewTileBufferPool creates a new, empty buffer pool.
func NewTileBufferPool() *TileBufferPool {
	return &TileBufferPool{}
}

// Get returns a []float32 of exactly n elements, zeroed, reused from the
// pool when available.
func (p *TileBufferPool) Get(n int) []float32 {
	if n <= 0 {
		return nil
	}
	pool := p.poolFor(n)
	buf := pool.Get().([]float32)
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Put returns a buffer to the pool for reuse. Buffers of unexpected
// length are dropped rather than stored under the wrong key.
func (p *TileBufferPool) Put(buf []float32) {
	if len(buf) == 0 {
		return
	}
	if v, ok := p.pools.Load(len(buf)); ok {
		v.(*sync.Pool).Put(buf) //nolint:staticcheck // pooled slice header reuse is intentional
	}
}

func (p *TileBufferPool) poolFor(n int) *sync.Pool {
	if v, ok := p.pools.Load(n); ok {
		return v.(*sync.Pool)
	}
	newPool := &sync.Pool{
		New: func() any {
			return make([]float32, n)
		},
	}
	actual, _ := p.pools.LoadOrStore(n, newPool)
	return actual.(*sync.Pool)
}

// defaultBufferPool is the package-level pool for convenient usage by the
// alignment matcher.
var defaultBufferPool = NewTileBufferPool()

// GetTileBuffer retrieves a sample buffer from the default pool.
func GetTileBuffer(n int) []float32 { return defaultBufferPool.Get(n) }

// PutTileBuffer returns a sample buffer to the default pool.
func PutTileBuffer(buf []float32) { defaultBufferPool.Put(buf) }
