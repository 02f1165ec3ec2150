package convert

// WithBeforeConvert runs fn inside the conversion, on the worker goroutine, before the codec is invoked.
func WithBeforeConvert(fn func(req Request)) Option {
	return func(w *Worker) {
		w.beforeConvert = fn
	}
}
