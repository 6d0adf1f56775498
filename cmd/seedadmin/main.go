// Command seedadmin creates an admin account. It is used to bootstrap the
// first login on a fresh database.
//
// Usage:
//
//	seedadmin --email=admin@example.com --password=S3curePass --first=Ada --last=Admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

func main() {
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	first := flag.String("first", "System", "first name")
	last := flag.String("last", "Admin", "last name")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "Usage: seedadmin --email=admin@example.com --password=S3curePass")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil || pg.PoolHandle() == nil {
		logger.Fatal("postgres is required; set POSTGRES_DSN", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.PoolHandle()

	reference := service.NewReferenceService(service.ReferenceDependencies{
		ReferenceRepo: repository.NewReferenceRepository(pool),
		CategoryRepo:  repository.NewCategoryRepository(pool),
		Logger:        logger,
	})
	roles, err := reference.Roles(ctx)
	if err != nil {
		logger.Fatal("load roles", zap.Error(err))
	}
	var adminRoleID int64
	for _, role := range roles {
		if role.Name == domain.RoleAdmin {
			adminRoleID = role.ID
		}
	}
	if adminRoleID == 0 {
		logger.Fatal("admin role missing; run the migrations first")
	}

	users := service.NewUserService(service.UserDependencies{
		UserRepo:   repository.NewUserRepository(pool),
		Reference:  reference,
		Tx:         repository.NewTxManager(pool),
		BcryptCost: cfg.Auth.BcryptCost,
	})
	user, err := users.CreateUser(ctx, 0, service.UserCreateInput{
		Email:     *email,
		Password:  *password,
		FirstName: *first,
		LastName:  *last,
		RoleID:    adminRoleID,
	})
	if err != nil {
		logger.Fatal("create admin", zap.Error(err))
	}

	fmt.Printf("Admin %q created with id %d.\n", user.Email, user.ID)
}
