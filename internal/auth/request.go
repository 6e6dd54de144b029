package auth

import (
	"net/http"

	"github.com/samber/mo"
)

type httpRequest struct {
	r *http.Request
}

// FromHTTP adapts a net/http request to Request.
func FromHTTP(r *http.Request) Request {
	return httpRequest{r: r}
}

func (h httpRequest) Path() string {
	return h.r.URL.Path
}

func (h httpRequest) Header(name string) mo.Option[string] {
	values := h.r.Header.Values(name)
	if len(values) == 0 {
		return mo.None[string]()
	}
	return mo.Some(values[0])
}

func (h httpRequest) Cookie(name string) mo.Option[string] {
	c, err := h.r.Cookie(name)
	if err != nil {
		return mo.None[string]()
	}
	return mo.Some(c.Value)
}
