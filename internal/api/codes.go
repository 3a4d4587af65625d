package api

import "strconv"

var codeDescriptions = map[string]string{
	"401":      "Unauthorized or token expired. Log in again or set PIPECAT_TOKEN.",
	"404":      "API endpoint not found or agent deployment not found.",
	"PCC-1000": "Unable to start agent.",
	"PCC-1001": "Attempt to start agent when deployment is not in ready state.",
	"PCC-1002": "Attempt to start agent without public api key.",
	"PCC-1003": "Unknown error occurred. Please check logs for more information.",
	"PCC-1004": "Billing credentials not set. Please set billing credentials via the dashboard.",
	"PCC-1005": "Agent deployment with name not found.",
	"PCC-1006": "Not authorized or invalid API key.",
}

// Describe returns the operator-facing explanation of a service error code,
// or "" for codes it does not know.
func Describe(code string) string {
	return codeDescriptions[code]
}

// Explain picks the best human description for err.
func (e *Error) Explain() string {
	if e.Code != "" {
		if text := Describe(e.Code); text != "" {
			return text
		}
	}
	switch e.Kind {
	case KindUnauthorized, KindNotFound:
		return Describe(strconv.Itoa(e.Status))
	case KindNetwork:
		return "Unable to reach the API. Check your network connection and api_host setting."
	}
	if e.Message != "" {
		return e.Message
	}
	return "Request failed with HTTP " + strconv.Itoa(e.Status) + "."
}
