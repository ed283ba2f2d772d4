package PatternCatalog

import (
	"Aegis/Constants"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
)

// ClientConfig holds the supplier portal credentials
type ClientConfig struct {
	Username string
	Password string
}

// AuthenticatedClients bundles the cookie-sharing HTTP client and colly
// collector the catalog sync works with
type AuthenticatedClients struct {
	HttpClient *http.Client
	Collector  *colly.Collector
}

// AuthenticityToken holds the CSRF token
type AuthenticityToken struct {
	Token string
}

// getToken retrieves the CSRF token from the portal login page
func getToken(client *http.Client) (AuthenticityToken, error) {
	response, err := client.Get(Constants.SupplierPortalURL)
	if err != nil {
		return AuthenticityToken{}, fmt.Errorf("error fetching response: %w", err)
	}
	defer response.Body.Close()

	document, err := goquery.NewDocumentFromReader(response.Body)
	if err != nil {
		return AuthenticityToken{}, fmt.Errorf("error loading HTTP response body: %w", err)
	}

	token, exists := document.Find("input[name='__VIEWSTATE']").Attr("value")
	if !exists {
		return AuthenticityToken{}, fmt.Errorf("could not find token in page")
	}

	return AuthenticityToken{Token: token}, nil
}

// Login creates an authenticated HTTP client and colly Collector against
// the supplier portal. The portal runs on a self-signed certificate, so
// TLS verification is skipped.
func Login(config ClientConfig) (*AuthenticatedClients, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}

	customTransport := http.DefaultTransport.(*http.Transport).Clone()
	customTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	httpClient := &http.Client{
		Jar:       jar,
		Transport: customTransport,
	}

	authenticityToken, err := getToken(httpClient)
	if err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
	)

	collector.WithTransport(&http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		// Disable HTTP/2 which can cause issues with some servers
		ForceAttemptHTTP2: false,
	})

	// Share the login cookies with the collector
	collector.SetCookieJar(jar)

	loginURL := Constants.SupplierPortalURL + "/"
	data := url.Values{
		"__EVENTTARGET":           {"lg_PortalLogin$LoginButton"},
		"__VIEWSTATE":             {authenticityToken.Token},
		"lg_PortalLogin$UserName": {config.Username},
		"lg_PortalLogin$Password": {config.Password},
	}

	req, err := http.NewRequest("POST", loginURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status: %d", resp.StatusCode)
	}
	log.Println("Supplier portal client authenticated")

	// Verify the collector carries the session too
	err = collector.Visit(Constants.SupplierPortalURL + "/WebPages/PatternLibrary.aspx")
	if err != nil {
		log.Println("Warning: Collector test request failed:", err)
		log.Println("Continuing with HTTP client only...")
	} else {
		log.Println("Collector successfully authenticated")
	}

	return &AuthenticatedClients{
		HttpClient: httpClient,
		Collector:  collector,
	}, nil
}

// GetClients returns authenticated clients with credentials from config
func GetClients() (*AuthenticatedClients, error) {
	if Constants.SupplierUsername == "" || Constants.SupplierPassword == "" {
		return nil, fmt.Errorf("SUPPLIER_USERNAME and SUPPLIER_PASSWORD must be set")
	}

	return Login(ClientConfig{
		Username: Constants.SupplierUsername,
		Password: Constants.SupplierPassword,
	})
}
