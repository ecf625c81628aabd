package publisher

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

const (
	DefaultPrompt = "Select item to save image of (press ESC to stop adding)"

	terminationMessage = "Target selection interrupted or invalid target selected."
	separator          = "--------------------------------------------------"
)

func formatReport(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func propertyListing(props []string) string {
	if len(props) == 0 {
		return "No properties found on this item"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d properties:", len(props))
	for i, p := range props {
		fmt.Fprintf(&b, "\n   %d. %s", i+1, p)
	}
	return b.String()
}

func uploadedMessage(name, productID, imageURL string) string {
	return formatReport(`
		Successfully uploaded to API! Product ID: %s
		Image URL: %s
		%s successfully added to your store!
	`, productID, imageURL, name)
}

func uploadFailedMessage(name, reason string) string {
	return formatReport(`
		API error: %s
		%s saved locally but failed to upload to API
	`, reason, name)
}

func summaryMessage(s Stats) string {
	return formatReport(`
		%s
		Publishing completed: %d selected, %d saved, %d uploaded, %d upload failures, %d skipped, %d not saved
	`, terminationMessage, s.Selected, s.Saved, s.Uploaded, s.UploadFailed, s.Skipped, s.SaveFailed)
}
