//go:build pact
// +build pact

package pacttest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	ProviderName = "adoption-api"
	ConsumerName = "adoption-portal"

	StateBaseline       = "no listings"
	StatePetExists      = "pet pact-pet is listed"
	StatePetMissing     = "no pet pact-missing"
	StatePendingRequest = "pact-adopter has a pending request pact-request for pact-pet"
)

const (
	OwnerID   = "pact-owner"
	AdopterID = "pact-adopter"

	ExistingPetID     = "pact-pet"
	MissingPetID      = "pact-missing"
	PendingRequestID  = "pact-request"
	ExamplePetName    = "Fluffy Pact Cat"
	ExamplePetSpecies = "cat"
	examplePhotoURL   = "https://example.pact/pets/fluffy.png"
)

// PactDir is where consumer runs write, and provider runs read, the adoption contract.
func PactDir(t testing.TB) string {
	return workspaceDir(t, "pacts")
}

// PactFile is the contract between the adoption portal and the adoption API.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), fmt.Sprintf("%s-%s.json", ConsumerName, ProviderName))
}

// LogDir collects pact-go mock server logs.
func LogDir(t testing.TB) string {
	return workspaceDir(t, "bin", "pact-logs")
}

func workspaceDir(t testing.TB, parts ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{projectRoot(t)}, parts...)...)
	require.NoError(t, os.MkdirAll(dir, 0o755), "create %s", dir)
	return dir
}

// ExamplePetPayload is the listing the portal publishes.
func ExamplePetPayload() map[string]any {
	return map[string]any{
		"name":      ExamplePetName,
		"species":   ExamplePetSpecies,
		"photoUrls": []string{examplePhotoURL},
	}
}

// ExamplePhotoURL is the single photo of the example listing.
func ExamplePhotoURL() string {
	return examplePhotoURL
}

func projectRoot(t testing.TB) string {
	t.Helper()
	_, here, _, ok := runtime.Caller(0)
	require.True(t, ok, "locate pacttest source")
	return filepath.Clean(filepath.Join(filepath.Dir(here), "..", ".."))
}
