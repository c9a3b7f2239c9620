package greeting

// NameInput carries the {name} path segment. It is echoed verbatim.
type NameInput struct {
	Name string `path:"name" doc:"Name to greet" example:"World"`
}
