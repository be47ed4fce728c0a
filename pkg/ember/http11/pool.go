package http11

import "sync"

// headBufPool recycles per-connection head buffers of the default size.
// Other sizes are allocated directly.
var headBufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultHeadBufferSize)
		return &buf
	},
}

// GetHeadBuffer returns a buffer of exactly size bytes.
// Buffers of DefaultHeadBufferSize come from a pool.
func GetHeadBuffer(size int) []byte {
	if size != DefaultHeadBufferSize {
		return make([]byte, size)
	}
	return *headBufPool.Get().(*[]byte)
}

// PutHeadBuffer returns a buffer obtained from GetHeadBuffer.
// Buffers of any other capacity are dropped.
func PutHeadBuffer(buf []byte) {
	if cap(buf) != DefaultHeadBufferSize {
		return
	}
	buf = buf[:DefaultHeadBufferSize]
	headBufPool.Put(&buf)
}
