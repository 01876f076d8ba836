package twitter

// BaseURL is the API root. Overridable in tests via Client.SetBaseURL.
const BaseURL = "https://api.x.com/1.1"

const (
	searchPath = "/search/adaptive.json"
	loginPath  = "/onboarding/task.json"
)
