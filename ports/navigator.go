package ports

// Navigator receives navigation side effects.
type Navigator interface {
	Navigate(route string)
}
