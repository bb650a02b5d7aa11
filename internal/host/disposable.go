package host

import "sync"

// Disposable releases a resource.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable. The function runs at most once.
func DisposeFunc(fn func()) Disposable {
	return &onceDisposable{fn: fn}
}

type onceDisposable struct {
	once sync.Once
	fn   func()
}

func (d *onceDisposable) Dispose() {
	d.once.Do(d.fn)
}

// DisposeAll disposes every item in order and returns an empty slice that
// reuses the backing array.
func DisposeAll(items []Disposable) []Disposable {
	for _, d := range items {
		if d != nil {
			d.Dispose()
		}
	}
	return items[:0]
}
