package greeting

type HomeOutput struct {
	Body HomeData
}

type HelloOutput struct {
	Body HelloData
}

type HelloNameOutput struct {
	Body HelloNameData
}
