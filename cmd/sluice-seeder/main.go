// sluice-seeder posts fabricated, correctly signed webhook deliveries at a
// running sluice instance, for development and load testing. Re-sending with
// -duplicates exercises the dedup path.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sluicehq/sluice/internal/twilio"
)

var (
	webhookURL = flag.String("url", "http://localhost:8000/whatsapp", "webhook endpoint URL")
	authToken  = flag.String("auth-token", "", "provider auth token used to sign requests (required)")
	count      = flag.Int("count", 20, "number of messages to generate")
	interval   = flag.Duration("interval", 200*time.Millisecond, "interval between deliveries")
	duplicates = flag.Int("duplicates", 0, "extra redeliveries of each message")
	mediaEvery = flag.Int("media-every", 4, "every Nth message carries media (0 for none)")
)

func main() {
	flag.Parse()

	if *authToken == "" {
		log.Fatal("Auth token is required. Use -auth-token flag")
	}

	gofakeit.Seed(time.Now().UnixNano())
	validator := twilio.NewSignatureValidator(*authToken)

	log.Printf("Starting webhook seeder:")
	log.Printf("  URL: %s", *webhookURL)
	log.Printf("  Message count: %d", *count)
	log.Printf("  Duplicates per message: %d", *duplicates)

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	successCount := 0
	failCount := 0

	for i := 0; i < *count; i++ {
		form := generateForm(i)

		for attempt := 0; attempt <= *duplicates; attempt++ {
			if err := send(client, validator, form); err != nil {
				log.Printf("Failed to send %s: %v", form["MessageSid"], err)
				failCount++
			} else {
				successCount++
			}

			if *interval > 0 {
				time.Sleep(*interval)
			}
		}
	}

	log.Printf("Seeding complete:")
	log.Printf("  Success: %d deliveries", successCount)
	log.Printf("  Failed: %d deliveries", failCount)
}

func generateForm(index int) map[string]string {
	phone := fmt.Sprintf("549%d", gofakeit.Number(1100000000, 1199999999))

	form := map[string]string{
		"MessageSid":  fmt.Sprintf("SM%032x", rand.Int63()),
		"AccountSid":  "ACseeder",
		"From":        "whatsapp:+" + phone,
		"To":          "whatsapp:+14155238886",
		"WaId":        phone,
		"ProfileName": gofakeit.Name(),
		"Body":        gofakeit.Sentence(gofakeit.Number(3, 12)),
		"MessageType": "text",
		"NumMedia":    "0",
	}

	if *mediaEvery > 0 && index%*mediaEvery == 0 {
		form["MessageType"] = "image"
		form["NumMedia"] = "1"
		form["MediaUrl0"] = gofakeit.URL()
		form["MediaContentType0"] = gofakeit.RandomString([]string{"image/jpeg", "image/png", "audio/ogg"})
	}

	return form
}

func send(client *http.Client, validator *twilio.SignatureValidator, form map[string]string) error {
	values := url.Values{}
	for k, v := range form {
		values.Set(k, v)
	}

	req, err := http.NewRequest(http.MethodPost, *webhookURL, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", validator.Sign(*webhookURL, form))

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}
