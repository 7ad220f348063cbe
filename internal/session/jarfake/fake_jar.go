package jarfake

import (
	"net/http"
	"sync"

	"github.com/jrsteele09/funeral-coordinator/internal/session"
)

var _ session.Jar = (*FakeJar)(nil)

// FakeJar is an in-memory cookie jar. Deleted cookies are remembered so tests
// can assert that a clear happened.
type FakeJar struct {
	cookies map[string]*http.Cookie
	deleted map[string]bool
	lock    sync.RWMutex
}

func NewFakeJar() *FakeJar {
	return &FakeJar{
		cookies: make(map[string]*http.Cookie),
		deleted: make(map[string]bool),
	}
}

func (j *FakeJar) Get(name string) (string, bool) {
	j.lock.RLock()
	defer j.lock.RUnlock()

	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}

func (j *FakeJar) Set(cookie *http.Cookie) {
	j.lock.Lock()
	defer j.lock.Unlock()

	j.cookies[cookie.Name] = cookie
	delete(j.deleted, cookie.Name)
}

func (j *FakeJar) Delete(name string) {
	j.lock.Lock()
	defer j.lock.Unlock()

	delete(j.cookies, name)
	j.deleted[name] = true
}

// Put stores a raw cookie value, as if the browser had sent it.
func (j *FakeJar) Put(name, value string) {
	j.Set(&http.Cookie{Name: name, Value: value})
}

// Cookie returns the last cookie written under name.
func (j *FakeJar) Cookie(name string) *http.Cookie {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.cookies[name]
}

// WasDeleted reports whether name was deleted and not written since.
func (j *FakeJar) WasDeleted(name string) bool {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.deleted[name]
}
