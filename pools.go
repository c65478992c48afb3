package demuxfs

import "sync"

// sectionBytesPool reuses the byte slices the reassembler hands complete
// sections off in, since a live ingest can extract thousands of sections a
// second. Engine.dispatch returns each slice to the pool once its table
// parser has finished with it.
var sectionBytesPool = &bytesPooler{
	sp: sync.Pool{
		New: func() interface{} {
			return &bytesPoolItem{s: make([]byte, 0, 1024)}
		},
	},
}

// bytesPoolItem holds a pooled payload slice.
type bytesPoolItem struct {
	s []byte
}

// bytesPooler is a sync.Pool specialized for variable-length byte slices.
type bytesPooler struct {
	sp sync.Pool
}

// get returns a pooled slice of exactly size bytes (reused backing array
// when it's big enough, grown otherwise).
func (bp *bytesPooler) get(size int) (payload *bytesPoolItem) {
	payload = bp.sp.Get().(*bytesPoolItem)
	if cap(payload.s) >= size {
		payload.s = payload.s[:size]
	} else {
		n := size - cap(payload.s)
		payload.s = append(payload.s[:cap(payload.s)], make([]byte, n)...)[:size]
	}
	return
}

// put returns payload to the pool. Don't use it after calling put.
func (bp *bytesPooler) put(payload *bytesPoolItem) {
	bp.sp.Put(payload)
}
