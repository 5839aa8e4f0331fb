package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"arabica/internal/broadcast"
	"arabica/internal/config"
	"arabica/internal/domain"
	httpapi "arabica/internal/http"
	"arabica/internal/repository"
	"arabica/internal/service"
	"arabica/internal/ws"
)

func main() {
	rootCmd := &cobra.Command{Use: "arabica"}
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// stores собранный набор репозиториев одной реализации
type stores struct {
	catalog   repository.CatalogRepository
	orders    repository.OrderRepository
	billing   repository.BillingRepository
	discounts repository.DiscountRepository
	users     repository.UserRepository
	tx        repository.TxManager
	close     func()
}

func buildStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.DatabaseDSN != "" {
		pg, err := repository.NewPostgresStore(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			catalog: pg, orders: pg, billing: pg, discounts: pg, users: pg, tx: pg,
			close: pg.Close,
		}, nil
	}
	log.Printf("no CAFE_DATABASE_DSN set, using in-memory store")
	mem := repository.NewMemoryStore()
	return &stores{
		catalog:   mem,
		orders:    repository.NewMemoryOrders(mem),
		billing:   repository.NewMemoryBilling(mem),
		discounts: repository.NewMemoryDiscounts(mem),
		users:     repository.NewMemoryUsers(mem),
		tx:        repository.NewMemoryTx(mem),
		close:     func() {},
	}, nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the café POS server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			st, err := buildStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			if err := seed(ctx, st); err != nil {
				return err
			}

			hub := broadcast.NewHub()
			coord := service.NewCoordinator(st.catalog, st.orders, st.billing, st.discounts, st.tx, hub)
			srv := httpapi.NewServer(
				coord,
				service.NewCatalogService(st.catalog),
				service.NewDiscountService(st.discounts),
				service.NewStaffService(st.users),
				service.NewReportService(st.billing),
				ws.NewHandler(hub, coord),
			)

			httpServer := &http.Server{
				Addr:    cfg.Addr,
				Handler: srv.Engine(),
			}
			go func() {
				log.Printf("HTTP server listening on %s", httpServer.Addr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("server error: %v", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("shutdown error: %v", err)
			}
			return nil
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.MigrateDSN == "" {
				return errors.New("CAFE_MIGRATE_DSN is not set")
			}
			m, err := migrate.New("file://"+cfg.MigrationsDir, cfg.MigrateDSN)
			if err != nil {
				return err
			}
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			log.Printf("migrations applied")
			return nil
		},
	}
}

// seed первичные учётки и образец меню при первом запуске
func seed(ctx context.Context, st *stores) error {
	defaults := []struct {
		username, fullName, password string
		role                         domain.Role
	}{
		{"admin", "Owner", "123", domain.RoleManager},
		{"staff", "Sample Staff", "123", domain.RoleStaff},
		{"guest", "Guest", "123", domain.RoleCustomer},
	}
	for _, d := range defaults {
		if _, err := st.users.GetUserByUsername(ctx, d.username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u := domain.User{Username: d.username, PasswordHash: string(hash), Role: d.role, FullName: d.fullName}
		if err := st.users.CreateUser(ctx, &u); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
			return err
		}
	}

	products, err := st.catalog.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return err
	}
	if len(products) == 0 {
		p := domain.Product{Name: "Cafe Den", Price: 25000, Category: "Cafe", Image: "/static/img/cafe_den.jpg", IsActive: true}
		if err := st.catalog.CreateProduct(ctx, &p, 50); err != nil {
			return err
		}
	}
	return nil
}
