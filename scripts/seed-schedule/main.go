package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinicops/internal/schedule"
)

type seedFile struct {
	Profiles []schedule.Profile `json:"profiles"`
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/seed-schedule <schedule-file.json>")
		fmt.Println("Example: go run ./scripts/seed-schedule testdata/sample-schedule.json")
		os.Exit(1)
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	token := strings.TrimSpace(os.Getenv("ADMIN_TOKEN"))
	if token == "" {
		fmt.Println("ADMIN_TOKEN is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		fmt.Printf("Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seeding %d schedule profiles into %s\n", len(seed.Profiles), apiURL)

	ctx := context.Background()
	client := &http.Client{Timeout: 30 * time.Second}
	failed := 0
	for i := range seed.Profiles {
		p := &seed.Profiles[i]
		if err := p.Validate(); err != nil {
			fmt.Printf("  skip %s/%s: %v\n", p.ClinicID, p.ProfessionalID, err)
			failed++
			continue
		}
		if err := putProfile(ctx, client, apiURL, token, p); err != nil {
			fmt.Printf("  fail %s/%s: %v\n", p.ClinicID, p.ProfessionalID, err)
			failed++
			continue
		}
		fmt.Printf("  ok   %s/%s (%s)\n", p.ClinicID, p.ProfessionalID, p.Timezone)
	}

	if failed > 0 {
		fmt.Printf("%d profiles failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("Done")
}

func putProfile(ctx context.Context, client *http.Client, apiURL, token string, p *schedule.Profile) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/v1/clinics/%s/professionals/%s/schedule", strings.TrimRight(apiURL, "/"), p.ClinicID, p.ProfessionalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
