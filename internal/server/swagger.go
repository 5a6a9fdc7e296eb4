package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Intent API
// @version 0.1
// @description Ingestion gateway for behavioral signal batches and the collector configuration handshake.
// @contact.name Intent Maintainers
// @contact.url https://github.com/raysh454/intent
// @BasePath /
