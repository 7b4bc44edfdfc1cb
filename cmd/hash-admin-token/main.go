package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/playmatatu/pooltable/internal/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	token := flag.String("token", os.Getenv("ADMIN_TOKEN"), "plain admin token to hash")
	flag.Parse()

	if *token == "" {
		log.Fatal("no token given; pass -token or set ADMIN_TOKEN")
	}

	hash, err := auth.HashAdminToken(*token)
	if err != nil {
		log.Fatalf("Failed to hash admin token: %v", err)
	}

	log.Println("✓ Admin token hashed; add this to the server environment:")
	fmt.Printf("ADMIN_TOKEN_HASH=%s\n", hash)
}
