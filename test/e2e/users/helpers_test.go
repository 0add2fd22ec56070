package users_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/quizverse/quizverse/pkg/usersdk"
)

/*
 * Container setup and shared helpers for the users service end-to-end tests.
 * Mail goes through the log driver, so OTPs are read back from the
 * container's stdout.
 */

const (
	testImageName = "quizverse-users-test:latest"

	adminEmail    = "dean@example.edu"
	adminPassword = "Dean#Pass1"
	userPassword  = "Student#1"
)

var otpPattern = regexp.MustCompile(`Your OTP is (\d+)\.`)

// TestMain builds the image once for the whole package.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Users Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Users Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/users/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

type usersContainer struct {
	testcontainers.Container
	BaseURL string
	Client  *usersdk.Client
}

// setupUsersContainer starts a fresh service. extraEnv overrides defaults.
func setupUsersContainer(t *testing.T, extraEnv map[string]string) *usersContainer {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"ENV":               "test",
		"LOG_LEVEL":         "info",
		"LOG_FORMAT":        "json",
		"DATABASE_FILE":     "/data/users.db",
		"PEPPER_FILE":       "/data/pepper",
		"ISSUER":            "quizverse-e2e",
		"KEY_ID":            "quizverse-e2e-key-001",
		"MAIL_DRIVER":       "log",
		"MAIL_RATE_PER_SEC": "0",
		"ADMIN_EMAILS":      adminEmail,
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          env,
			WaitingFor: wait.ForHTTP("/livez").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
	return &usersContainer{
		Container: container,
		BaseURL:   baseURL,
		Client:    usersdk.NewClient(baseURL),
	}
}

// lastOTP scans the container log for the newest mail sent to addr.
func (c *usersContainer) lastOTP(t *testing.T, addr string) string {
	t.Helper()

	var otp string
	require.Eventually(t, func() bool {
		rc, err := c.Logs(context.Background())
		if err != nil {
			return false
		}
		defer rc.Close()

		found := ""
		sc := bufio.NewScanner(rc)
		for sc.Scan() {
			line := sc.Bytes()
			start := 0
			for start < len(line) && line[start] != '{' {
				start++ // docker stream header
			}
			var entry struct {
				Msg  string `json:"msg"`
				To   string `json:"to"`
				Body string `json:"body"`
			}
			if json.Unmarshal(line[start:], &entry) != nil || entry.Msg != "email" || entry.To != addr {
				continue
			}
			if m := otpPattern.FindStringSubmatch(entry.Body); m != nil {
				found = m[1]
			}
		}
		otp = found
		return otp != ""
	}, 5*time.Second, 100*time.Millisecond, "no OTP mailed to %s", addr)

	return otp
}

// registerAndLogin creates an account and returns a logged in session.
func registerAndLogin(t *testing.T, c *usersContainer, username, email, password string) (*usersdk.UserResponse, *usersdk.Session) {
	t.Helper()
	ctx := context.Background()

	user, err := c.Client.Register(ctx, usersdk.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)

	session, err := c.Client.Login(ctx, username, password)
	require.NoError(t, err)
	return user, session
}

func requireAPIError(t *testing.T, err error, status int, details string) {
	t.Helper()
	var apiErr *usersdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.Status)
	if details != "" {
		require.Equal(t, details, apiErr.Details)
	}
}
