package ncbi

import (
	"net/url"
	"os"
)

// Credentials identify the caller to NCBI. All fields are optional; empty
// values are not sent.
type Credentials struct {
	// Email is the contact address NCBI asks heavy users to provide.
	Email string `json:"email"`
	// APIKey raises the E-utilities rate limit.
	APIKey string `json:"api_key"`
	// Tool names the calling software.
	Tool string `json:"tool"`
}

// FetchCredentials is a function type that retrieves NCBI credentials.
// It allows for different retrieval strategies (static, environment variables, etc.).
type FetchCredentials func() (Credentials, error)

// StaticCredentials returns a FetchCredentials function that provides fixed credentials.
func StaticCredentials(email, apiKey, tool string) FetchCredentials {
	return func() (Credentials, error) {
		return Credentials{
			Email:  email,
			APIKey: apiKey,
			Tool:   tool,
		}, nil
	}
}

// Anonymous returns a FetchCredentials function that provides no credentials.
func Anonymous() FetchCredentials {
	return func() (Credentials, error) {
		return Credentials{}, nil
	}
}

// EnvCredentials reads NCBI_EMAIL, NCBI_API_KEY and NCBI_TOOL. Unset
// variables are left empty.
func EnvCredentials() FetchCredentials {
	return func() (Credentials, error) {
		return Credentials{
			Email:  os.Getenv("NCBI_EMAIL"),
			APIKey: os.Getenv("NCBI_API_KEY"),
			Tool:   os.Getenv("NCBI_TOOL"),
		}, nil
	}
}

// blastParams adds the identification parameters accepted by the BLAST URL API.
func (c Credentials) blastParams(params url.Values) {
	if c.Email != "" {
		params.Set("EMAIL", c.Email)
	}
	if c.Tool != "" {
		params.Set("TOOL", c.Tool)
	}
}

// eutilsParams adds the identification parameters accepted by E-utilities.
func (c Credentials) eutilsParams(params url.Values) {
	if c.Email != "" {
		params.Set("email", c.Email)
	}
	if c.Tool != "" {
		params.Set("tool", c.Tool)
	}
	if c.APIKey != "" {
		params.Set("api_key", c.APIKey)
	}
}
