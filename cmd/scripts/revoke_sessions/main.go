// Command revoke_sessions ends live sessions from the command line.
//
//	revoke_sessions -email alice@example.com   # one account
//	revoke_sessions -all                       # every account
//	revoke_sessions -stale                     # only sessions past refresh expiry
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/webcrawler/backend/internal/config"
	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/services"
	"gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	email := flag.String("email", "", "revoke the sessions of this account")
	all := flag.Bool("all", false, "revoke every live session")
	stale := flag.Bool("stale", false, "expire sessions whose refresh token has run out")
	flag.Parse()

	if *email == "" && !*all && !*stale {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := models.Open(&cfg.Database, logger.Warn)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	store := services.NewTokenStore(db)

	before, err := store.CountLive(ctx)
	if err != nil {
		fmt.Printf("Failed to count sessions: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Live sessions before: %d\n", before)

	switch {
	case *stale:
		n, err := store.ExpireStale(ctx, time.Now())
		if err != nil {
			fmt.Printf("Failed to expire stale sessions: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Expired %d stale sessions\n", n)

	case *all:
		res := db.WithContext(ctx).Model(&models.Token{}).Where("is_expired = ?", false).Update("is_expired", true)
		if res.Error != nil {
			fmt.Printf("Failed to revoke sessions: %v\n", res.Error)
			os.Exit(1)
		}
		fmt.Printf("Revoked %d sessions\n", res.RowsAffected)

	default:
		var user models.User
		if err := db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(*email))).Take(&user).Error; err != nil {
			fmt.Printf("Failed to find %s: %v\n", *email, err)
			os.Exit(1)
		}
		if err := store.InvalidateAll(ctx, user.ID); err != nil {
			fmt.Printf("Failed to revoke sessions of %s: %v\n", *email, err)
			os.Exit(1)
		}
		fmt.Printf("Revoked sessions of %s (id %d)\n", user.Email, user.ID)
	}

	after, err := store.CountLive(ctx)
	if err == nil {
		fmt.Printf("Live sessions after: %d\n", after)
	}
}
