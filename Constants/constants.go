package Constants

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// JWTSecret signs the login tokens. Load overrides it from JWT_SECRET;
// the fallback keeps local development working.
var JWTSecret = "secret"

// WhatsappGoService is the base URL of the go-whatsapp-web-multidevice
// gateway used for customer messages.
var WhatsappGoService = "http://localhost:3000"

// FirebaseCredentialsFile points at the service account key for FCM.
var FirebaseCredentialsFile = "./firebase-service-account.json"

// SlackBotToken / SlackAppToken come from the environment (socket mode
// needs both).
var SlackBotToken string
var SlackAppToken string

// SupplierPortalURL is the film supplier portal the pattern catalog is
// scraped from.
var SupplierPortalURL = "https://patterns.protexfilms.example.com"
var SupplierUsername string
var SupplierPassword string

// ShopConfig holds shop-level settings read from shop.json5. The file is
// JSON5 so the installers can keep inline comments next to the values
// they tweak.
type ShopConfig struct {
	ShopName         string   `json:"shop_name"`
	SlackChannelID   string   `json:"slack_channel_id"`
	DayStart         string   `json:"day_start"`
	DayEnd           string   `json:"day_end"`
	ReminderHour     int      `json:"reminder_hour"`
	ReportRecipients []string `json:"report_recipients"`
	DefaultChecklist []string `json:"default_zone_checklist"`
	ShopLatitude     float64  `json:"shop_latitude"`
	ShopLongitude    float64  `json:"shop_longitude"`
}

// Shop is populated by Load. The zero value carries working defaults so
// the server still boots without a shop.json5.
var Shop = ShopConfig{
	ShopName:     "Aegis PPF",
	DayStart:     "08:00",
	DayEnd:       "18:00",
	ReminderHour: 18,
	DefaultChecklist: []string{
		"surface_cleaned",
		"pattern_aligned",
		"edges_sealed",
		"no_bubbles",
	},
}

// Load reads .env and shop.json5. Missing files are fine; the defaults
// above stay in place.
func Load() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		JWTSecret = v
	}
	if v := os.Getenv("WHATSAPP_SERVICE"); v != "" {
		WhatsappGoService = v
	}
	if v := os.Getenv("FIREBASE_CREDENTIALS"); v != "" {
		FirebaseCredentialsFile = v
	}
	SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	SlackAppToken = os.Getenv("SLACK_APP_TOKEN")
	if v := os.Getenv("SUPPLIER_PORTAL_URL"); v != "" {
		SupplierPortalURL = v
	}
	SupplierUsername = os.Getenv("SUPPLIER_USERNAME")
	SupplierPassword = os.Getenv("SUPPLIER_PASSWORD")

	file, err := os.Open("shop.json5")
	if err != nil {
		log.Println("No shop.json5 found, using default shop config")
		return
	}
	defer file.Close()

	if err := json5.NewDecoder(file).Decode(&Shop); err != nil {
		log.Printf("Error parsing shop.json5: %v", err)
		return
	}
	log.Printf("Loaded shop config for %s", Shop.ShopName)
}
