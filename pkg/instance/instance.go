package instance

import "os"

// GetID identifies this process in logs and distributed lock values.
// Deployments set RESGATE_INSTANCE_ID per replica; outside an orchestrator
// the hostname is good enough.
func GetID() string {
	if id := os.Getenv("RESGATE_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "instance-0"
}
