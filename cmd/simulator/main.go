package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8000"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "seed":
		seedCmd(apiURL, args)
	case "session":
		sessionCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Session Simulator - Development tool for exercising the users API

USAGE:
  simulator <command> [options]

COMMANDS:
  seed      Register fake users and subscribe them to one channel
  session   Walk one user through login, refresh, token replay and logout
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8000)

EXAMPLES:
  # Register 5 users who all subscribe to the first one
  simulator seed --count=5

  # Run the session lifecycle and print the pushed session events
  simulator session`)
}

func seedCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	count := fs.Int("count", 5, "Number of fake users to register")
	password := fs.String("password", "testpassword123", "Password for every fake user")
	fs.Parse(args)

	if *count < 1 {
		fmt.Println("Error: --count must be at least 1")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	batch := uuid.NewString()[:6]

	fmt.Println("=== Session Simulator: Seed ===")
	fmt.Println()

	var channel string
	for i := 0; i < *count; i++ {
		username := fmt.Sprintf("viewer%d_%s", i, batch)
		user, err := client.RegisterUser(username, *password)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to register: %v\n", i+1, *count, err)
			os.Exit(1)
		}

		if i == 0 {
			channel = user.Username
			fmt.Printf("  [%d/%d] %s registered (channel)\n", i+1, *count, user.Username)
			continue
		}

		login, err := client.Login(user.Username, *password)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to log in: %v\n", i+1, *count, err)
			os.Exit(1)
		}
		profile, err := client.Subscribe(login.AccessToken, channel)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to subscribe: %v\n", i+1, *count, err)
			os.Exit(1)
		}
		fmt.Printf("  [%d/%d] %s subscribed (%s now has %d subscribers)\n", i+1, *count, user.Username, channel, profile.SubscribersCount)
	}

	fmt.Println()
	fmt.Printf("Done! Log in as any user with password %q\n", *password)
}

func sessionCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	password := fs.String("password", "testpassword123", "Password for the simulated user")
	fs.Parse(args)

	client := NewAPIClient(apiURL)
	username := "session_" + uuid.NewString()[:8]

	fmt.Println("=== Session Simulator: Lifecycle ===")
	fmt.Println()

	step("Registering "+username, func() error {
		_, err := client.RegisterUser(username, *password)
		return err
	})

	var login *LoginResponse
	step("Logging in", func() error {
		var err error
		login, err = client.Login(username, *password)
		return err
	})

	events, closeEvents, err := client.WatchSessions(login.AccessToken)
	if err != nil {
		fmt.Printf("Warning: session events unavailable: %v\n", err)
	}

	step("Fetching current user", func() error {
		_, err := client.CurrentUser(login.AccessToken)
		return err
	})

	var rotated *TokenPair
	step("Refreshing tokens", func() error {
		var err error
		rotated, err = client.Refresh(login.RefreshToken)
		return err
	})

	step("Replaying the original refresh token (expect 401)", func() error {
		_, err := client.Refresh(login.RefreshToken)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			fmt.Printf("rejected: %s... ", apiErr.Message)
			return nil
		}
		if err == nil {
			return errors.New("replayed token was accepted")
		}
		return err
	})

	step("Logging out", func() error {
		return client.Logout(rotated.AccessToken)
	})

	step("Refreshing after logout (expect 401)", func() error {
		_, err := client.Refresh(rotated.RefreshToken)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			return nil
		}
		return fmt.Errorf("expected 401, got %v", err)
	})

	if events != nil {
		fmt.Println()
		fmt.Println("Session events received:")
		timeout := time.After(time.Second)
	drain:
		for {
			select {
			case msg, ok := <-events:
				if !ok {
					break drain
				}
				fmt.Printf("  %s  %s\n", msg.At.Format(time.RFC3339), msg.Type)
			case <-timeout:
				break drain
			}
		}
		closeEvents()
	}

	fmt.Println()
	fmt.Println("Lifecycle completed.")
}

func step(name string, fn func() error) {
	fmt.Printf("%s... ", name)
	if err := fn(); err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}
