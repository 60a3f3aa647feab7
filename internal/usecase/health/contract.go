package health

// ListStatusReader reports the state of the cached population list.
type ListStatusReader interface {
	ListStatus() (ready bool, err error)
}
