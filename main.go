package main

import "github.com/CUknot/chat_backend/cmd"

// @title           Chat API
// @version         1.0
// @description     Rooms, memberships, paged message history and attachments.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cmd.Execute()
}
