package session

import (
	"net/http"
	"strings"
	"time"
)

// Jar is the cookie storage seen by the session stores.
type Jar interface {
	Get(name string) (string, bool)
	Set(cookie *http.Cookie)
	Delete(name string)
}

type requestJar struct {
	w       http.ResponseWriter
	r       *http.Request
	written map[string]*http.Cookie
}

// RequestJar reads cookies from r and writes them to w. Cookies written
// during the request are returned by later reads.
func RequestJar(w http.ResponseWriter, r *http.Request) Jar {
	return &requestJar{
		w:       w,
		r:       r,
		written: make(map[string]*http.Cookie),
	}
}

func (j *requestJar) Get(name string) (string, bool) {
	if c, ok := j.written[name]; ok {
		if c.MaxAge < 0 || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
	c, err := j.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (j *requestJar) Set(cookie *http.Cookie) {
	j.dropPending(cookie.Name)
	j.written[cookie.Name] = cookie
	http.SetCookie(j.w, cookie)
}

func (j *requestJar) Delete(name string) {
	j.Set(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// dropPending removes an earlier Set-Cookie for name so that only the last
// write in a request reaches the browser.
func (j *requestJar) dropPending(name string) {
	if _, ok := j.written[name]; !ok {
		return
	}
	header := j.w.Header()
	prefix := name + "="
	kept := header["Set-Cookie"][:0]
	for _, line := range header["Set-Cookie"] {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		header.Del("Set-Cookie")
		return
	}
	header["Set-Cookie"] = kept
}
