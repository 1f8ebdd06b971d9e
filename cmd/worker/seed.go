package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asso-lecture/asso-backend/internal/auth"
	"github.com/asso-lecture/asso-backend/internal/books"
	"github.com/asso-lecture/asso-backend/internal/bootstrap"
	"github.com/asso-lecture/asso-backend/internal/children"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/loans"
	"github.com/asso-lecture/asso-backend/internal/projects"
	"github.com/asso-lecture/asso-backend/internal/seed"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/asso-lecture/asso-backend/internal/users"
	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create or promote the ADMIN_EMAIL account and print a token for it",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.ToLower(strings.TrimSpace(cfg.Admin.Email))
		if email == "" {
			return fmt.Errorf("ADMIN_EMAIL is required")
		}
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			u, err := ensureAdmin(cmd.Context(), app, email)
			if err != nil {
				return err
			}
			log.Info("admin ready", "user_id", u.ID, "email", u.Email)

			if cfg.Auth.Provider != "jwt" {
				fmt.Println(u.ID)
				return nil
			}
			tok, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret).Issue(u.ID, u.Email, domain.RoleAdmin, tokenTTL)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Println(tok)
			return nil
		})
	},
}

func ensureAdmin(ctx context.Context, app *bootstrap.App, email string) (*domain.User, error) {
	svc := users.NewService(app.Store, app.Rules, log)
	existing, err := app.Store.Users.ListUsers(ctx, storage.UserFilter{Email: email})
	if err != nil {
		return nil, err
	}
	for _, u := range existing {
		if u.Role == domain.RoleAdmin {
			return &u, nil
		}
		role := domain.RoleAdmin
		return svc.Update(ctx, u.ID, users.UpdateInput{Role: &role})
	}
	return svc.Create(ctx, users.CreateInput{
		Nom:    cfg.Admin.Nom,
		Prenom: cfg.Admin.Prenom,
		Email:  email,
		Role:   domain.RoleAdmin,
	})
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a YAML fixture through the services",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := seed.LoadFile(seedFile)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			svc := seed.Services{
				Users:    users.NewService(app.Store, app.Rules, log),
				Books:    books.NewService(app.Store, app.Rules, log),
				Children: children.NewService(app.Store, app.Rules, log),
				Projects: projects.NewService(app.Store, app.Rules, log),
				Loans:    loans.NewService(app.Store, app.Rules, log),
			}
			sum, err := seed.Apply(cmd.Context(), f, svc, log)
			fmt.Printf("users=%d books=%d children=%d projects=%d loans=%d inconsistencies=%d\n",
				sum.Users, sum.Books, sum.Children, sum.Projects, sum.Loans, sum.Inconsistencies)
			return err
		})
	},
}

func init() {
	seedAdminCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "validity of the printed token")
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "fixture file")
	_ = seedCmd.MarkFlagRequired("file")
}
