package greeting

// HomeData is the service overview returned by GET /.
type HomeData struct {
	Message   string   `json:"message" doc:"Service banner" example:"GitHub Actions Workshop - Java Spring Boot Demo"`
	Status    string   `json:"status" doc:"Service state" example:"running"`
	Timestamp string   `json:"timestamp" doc:"Request time as local date-time without offset" example:"2024-01-15T10:30:00"`
	Version   string   `json:"version" doc:"Service version" example:"1.0.0"`
	Endpoints []string `json:"endpoints" doc:"Available endpoints with a short description"`
}

// HelloData is the fixed greeting returned by GET /hello.
type HelloData struct {
	Message     string `json:"message" doc:"Greeting message" example:"Hello from Spring Boot!"`
	DeployedVia string `json:"deployed_via" doc:"Delivery pipeline" example:"GitHub Actions + Terraform"`
}

// HelloNameData is the personalized greeting returned by GET /hello/{name}.
type HelloNameData struct {
	Message  string `json:"message" doc:"Personalized greeting" example:"Hello, World!"`
	Greeting string `json:"greeting" doc:"Workshop welcome line" example:"Welcome to the GitHub Actions Workshop!"`
}
