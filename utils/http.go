// utils/http.go
package utils

import (
	"net/http"
	"time"
)

var HTTPClient = &http.Client{
	Timeout: 300 * time.Second, // 5 minutes for slow AI generation runs
}
