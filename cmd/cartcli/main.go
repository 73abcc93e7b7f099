package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"app/internal/cartsync"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// カートAPIに対して同期エンジンを一通り動かす確認用CLI。
//
//	go run ./cmd/cartcli <product_ref>
//
// CART_API_URL / JWT_SECRET / CART_PRINCIPAL を環境変数で渡す。
func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("usage: cartcli <product_ref>")
	}
	productRef := os.Args[1]

	baseURL := os.Getenv("CART_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	principal := os.Getenv("CART_PRINCIPAL")
	if principal == "" {
		principal = uuid.NewString()
	}

	token, err := issueToken(secret, principal)
	if err != nil {
		log.Fatal(err)
	}

	notifier := cartsync.NotifierFunc(func(level cartsync.Level, message string) {
		log.Printf("[%s] %s", level, message)
	})

	transport := cartsync.NewHTTPTransport(baseURL, token)
	store := cartsync.NewStore(transport, notifier)
	store.SetPrincipal(principal)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Fetch(ctx); err != nil {
		log.Fatal(err)
	}
	printCart(store)

	if err := store.Add(ctx, productRef); err != nil {
		log.Fatal(err)
	}
	if err := store.UpdateQuantity(ctx, productRef, 3); err != nil {
		log.Fatal(err)
	}
	printCart(store)

	if err := store.Remove(ctx, productRef); err != nil {
		log.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		log.Fatal(err)
	}
	printCart(store)
}

func issueToken(secret string, principal string) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub": principal,
		"iat": now.Unix(),
		"exp": now.Add(15 * time.Minute).Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

func printCart(store *cartsync.Store) {
	fmt.Printf("cart: %d items, total %d\n", store.Count(), store.Total())
	for _, it := range store.Items() {
		fmt.Printf("  %s x%d (%s, %d yen, %s)\n", it.Name, it.Quantity, it.ProductRef, it.Price, it.ShopName)
	}
}
