package twitter

import "time"

// Query describes one date-bounded, language-filtered keyword search.
type Query struct {
	Keyword string
	Since   string // ISO date, inclusive lower bound
	Until   string // ISO date, inclusive upper bound
	Lang    string
	Latest  bool // most recent matches first
}

// Post is one raw search result item, before sentiment annotation.
type Post struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	AuthorName   string    `json:"author_name"`
	AuthorHandle string    `json:"author_handle"`
	CreatedAt    time.Time `json:"created_at"`
	Likes        int       `json:"favorite_count"`
	Retweets     int       `json:"retweet_count"`
	Replies      int       `json:"reply_count"`
}

// searchResponse is the wire shape of a search or pagination call.
type searchResponse struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"next_cursor"`
}

// apiErrorBody is the error envelope the API returns on non-2xx responses.
// The embedded code is authoritative over the HTTP status for login-flow
// refusals (blocked, challenge).
type apiErrorBody struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// loginRequest is the credential login payload.
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// loginResponse carries the session cookies issued on a successful login.
type loginResponse struct {
	AuthToken string `json:"auth_token"`
	CSRFToken string `json:"ct0"`
}
