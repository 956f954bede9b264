package main

import "rulevault/internal/app"

// @title           Rulevault API
// @version         1.0
// @description     Authentication and session core for the Rulevault rulebook assistant.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	app.Run()
}
