package dbtest

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/log"
	neo4jtest "github.com/testcontainers/testcontainers-go/modules/neo4j"
)

// Neo4jImage exposes the image to use for the Neo4j container.
//
// The enterprise variant is required: stores keep each knowledge graph in its
// own database and key entities with NODE KEY constraints.
//
// See <https://hub.docker.com/_/neo4j> for more images.
const Neo4jImage = "docker.io/neo4j:5-enterprise"

// Default port of the HTTP endpoint serving the browser.
const neo4jHTTP = nat.Port("7474/tcp")

// Inspect keeps the container of a failed test running until interrupted, so
// the knowledge graph it left behind can be browsed. The testcontainers reaper
// removes it eventually.
var Inspect = flag.Bool("dbtest.inspect", false, "keep the neo4j container of a failed test running until interrupted")

// SetupNeo4j spins up a new Neo4j container without authentication and returns
// a driver connected to it. Both are torn down when the test completes.
//
// Container-based tests are slow: SetupNeo4j skips the test under '-short' and
// marks it parallel.
func SetupNeo4j(t *testing.T) neo4j.DriverWithContext {
	t.Helper()

	// Container-based tests are long-running and should respect the '-short' flag.
	if testing.Short() {
		t.Skip("Skipping container-based test in short mode...")
	}

	// Always run container-based tests in parallel.
	t.Parallel()

	ctx := context.Background()

	container, err := neo4jtest.Run(ctx, Neo4jImage,
		testcontainers.WithLogger(log.TestLogger(t)),
		neo4jtest.WithoutAuthentication(),
		neo4jtest.WithAcceptCommercialLicenseAgreement(),
	)
	if err != nil {
		t.Fatal("Failed to run neo4j container:", err)
	}
	t.Cleanup(func() {
		t.Logf("Terminating neo4j container %q...", container.GetContainerID())
		if err := container.Terminate(ctx); err != nil {
			t.Error("Encountered an error during cleanup; terminate container:", err)
		}
	})

	// First, get runtime information about the container.
	boltURL, err := container.BoltUrl(ctx)
	if err != nil {
		t.Fatal("Failed to get bolt url:", err)
	}

	// Browser URL for -dbtest.inspect, see
	// <https://neo4j.com/docs/browser-manual/current/operations/browser-url-parameters>
	httpEndpoint, err := container.PortEndpoint(ctx, neo4jHTTP, "http")
	if err != nil {
		t.Fatal("Failed to get http endpoint:", err)
	}

	// Connect to the container database and cleanup by the time the test ends.
	driver, err := neo4j.NewDriverWithContext(boltURL, neo4j.NoAuth())
	if err != nil {
		t.Fatal("Failed to open neo4j driver:", err)
	}
	t.Cleanup(func() {
		if err := driver.Close(ctx); err != nil {
			t.Error("Encountered an error during cleanup while closing the neo4j driver:", err)
		}
	})

	// Verify that the connection is working and the database is ready.
	if err := verifyConnectivityWithRetries(t, ctx, driver); err != nil {
		t.Fatalf("Failed to establish a connection with the remote neo4j server after retries: %v", err)
	}

	// Keep the container running for manual debugging of the graph.
	t.Cleanup(func() {
		if t.Failed() && *Inspect {
			t.Logf("Container %v is still running for inspection (Ctrl+C to terminate)...", container.GetContainerID())
			t.Logf("HTTP URL = %s/browser?preselectAuthMethod=%s&dbms=%s", httpEndpoint, url.QueryEscape("[NO_AUTH]"), url.QueryEscape(boltURL))
			t.Logf("Bolt URL = %s", boltURL)
			waitForInspection()
		}
	})

	return driver
}

// verifyConnectivityWithRetries retries connecting a few times, since the
// container may report ready before Neo4j accepts bolt connections.
func verifyConnectivityWithRetries(t *testing.T, ctx context.Context, driver neo4j.DriverWithContext) error {
	t.Helper()

	const retryLimit = 5
	const retryPause = 100 * time.Millisecond

	err := driver.VerifyConnectivity(ctx)
	if err == nil {
		return nil
	}
	for r := range retryLimit {
		t.Logf("Attempting retry [%d/%d] after failing to establish a connection with the remote neo4j server: %v", r, retryLimit, err)
		select {
		case <-time.After(retryPause):
		case <-ctx.Done():
			return fmt.Errorf("retry pause interrupted: %w", ctx.Err())
		}
		err = driver.VerifyConnectivity(ctx)
		if err == nil {
			return nil
		}
	}
	return err
}

// waitForInspection blocks until interrupted (Ctrl+C).
func waitForInspection() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)
	<-c
}
