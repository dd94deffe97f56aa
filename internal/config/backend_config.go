package config

import "time"

const (
	backendBaseURLVar = "BACKEND_BASE_URL"
	instanceIDVar     = "INSTANCE_ID"
	requestTimeoutVar = "REQUEST_TIMEOUT"
)

// Backend reads the management API settings from the environment.
type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendBaseURL() string {
	return GetEnv(backendBaseURLVar, "http://localhost:9000")
}

// GetInstanceID returns the console instance the backend scopes
// sessions to.
func (Backend) GetInstanceID() string {
	return GetEnv(instanceIDVar, "default")
}

// GetRequestTimeout bounds every outbound call to the IdP and the backend.
func (Backend) GetRequestTimeout() time.Duration {
	if value := GetEnv(requestTimeoutVar, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return 10 * time.Second
}
