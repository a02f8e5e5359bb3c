//go:build wasip1

package program

// The guest has no terminal to style for.
func sayPrefix() string {
	return "Stylus says:"
}
