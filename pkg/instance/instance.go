package instance

import "os"

// GetID names the running process in logs. Heroku style DYNO wins over HOSTNAME.
func GetID() string {
	for _, key := range []string{"DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
