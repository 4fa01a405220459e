// Command eventtoken prints a bearer token the backend can use to post
// events to the bot's /events endpoint.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/m3rciful/estatebot/internal/notify"
)

func main() {
	_ = godotenv.Load()

	subject := flag.String("sub", "backend", "token subject")
	ttl := flag.Duration("ttl", 365*24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("EVENTS_JWT_SECRET")
	if secret == "" {
		log.Fatal("EVENTS_JWT_SECRET is not set")
	}
	token, err := notify.SignToken(secret, *subject, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
