// Comando de operador: inserta un miembro pre-aprovisionado para que pueda
// activar su cuenta mediante el flujo de OTP. La creación de identidades
// ocurre siempre fuera del API.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"activation-api/internal/config"
	"activation-api/internal/db"
	"activation-api/internal/domain"
	"activation-api/internal/repository"
)

func main() {
	uniqueID := flag.String("unique-id", "", "identificador externo del miembro (obligatorio)")
	fullName := flag.String("full-name", "", "nombre completo")
	emailAddr := flag.String("email", "", "correo de contacto (obligatorio)")
	flag.Parse()

	if *uniqueID == "" || *emailAddr == "" {
		flag.Usage()
		log.Fatal("provision: -unique-id and -email are required")
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("provision: config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("provision: db connect: %v", err)
	}
	defer pool.Close()

	member := domain.Member{
		ID:        uuid.NewString(),
		UniqueID:  *uniqueID,
		FullName:  *fullName,
		Email:     *emailAddr,
		CreatedAt: time.Now().UTC(),
	}

	repo := repository.NewPgMemberRepository(pool)
	if err := repo.Create(ctx, member); err != nil {
		log.Fatalf("provision: create member: %v", err)
	}

	log.Printf("provisioned member %s (unique_id=%s, email=%s)", member.ID, member.UniqueID, member.Email)
}
