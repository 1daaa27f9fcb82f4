package intercept

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// Transport is the RoundTripper returned by Registry.Wrap.
type Transport struct {
	base     http.RoundTripper
	registry *Registry
}

// RoundTrip delegates to the base transport. For the intercepted endpoint the
// response body is replaced by a tee that copies what the caller reads; the
// request, status, headers and bytes are left as they are.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp == nil || resp.Body == nil {
		return resp, err
	}

	url := req.URL.String()
	if !t.registry.Matches(url) {
		return resp, nil
	}

	resp.Body = &teeBody{
		rc: resp.Body,
		done: func(head []byte, rest io.ReadCloser) {
			t.registry.schedule(url, head, rest)
		},
	}
	return resp, nil
}

// teeBody copies every byte read into buf and hands the copy off once. At EOF
// the copy is the whole body. A body closed early is handed off together with
// the unread remainder, which the extraction goroutine reads and closes, so
// Close returns without waiting for the rest of the response.
type teeBody struct {
	rc     io.ReadCloser
	buf    bytes.Buffer
	once   sync.Once
	closed bool
	done func(head []byte, rest io.ReadCloser)
}

func (b *teeBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.buf.Write(p[:n])
	}
	if err == io.EOF {
		b.finish(nil)
	}
	return n, err
}

func (b *teeBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.finish(b.rc) {
		return nil
	}
	return b.rc.Close()
}

// finish hands the copy off on the first call and reports whether rest was
// taken over.
func (b *teeBody) finish(rest io.ReadCloser) (handed bool) {
	b.once.Do(func() {
		head := append([]byte(nil), b.buf.Bytes()...)
		b.done(head, rest)
		handed = rest != nil
	})
	return handed
}
