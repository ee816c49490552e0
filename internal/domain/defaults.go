package domain

import "time"

// Default campaign settings, restored by a campaign reset.
const (
	DefaultCampaignName      = "Summer Product Launch"
	DefaultCampaignObjective = "Increase brand awareness and drive sales for our new summer collection"
)

// DefaultDocument returns the seeded demo document used when no metadata
// file exists or it cannot be read. Demo ads have no backing file.
func DefaultDocument(now time.Time) *Document {
	ts := NewTimestamp(now)
	doc := &Document{
		Campaign: Campaign{
			Name:      DefaultCampaignName,
			Objective: DefaultCampaignObjective,
			CreatedAt: ts,
		},
	}

	social := &AdSet{
		Name:        "Social Media Ads",
		Description: "Ads for Facebook, Instagram, and Twitter",
		CreatedAt:   ts,
	}
	social.Ads.Set("demo001", &Ad{
		ID:          "demo001",
		Name:        "Instagram Story Template",
		Description: "Bright and engaging story template for product showcase",
		Tags:        []string{"instagram", "story", "template", "summer"},
		URL:         "https://example.com/campaign1",
		CreatedAt:   ts,
		MimeType:    "image/jpeg",
	})
	social.Ads.Set("demo002", &Ad{
		ID:          "demo002",
		Name:        "Product Demo Video",
		Description: "Short video demonstrating key product features",
		Tags:        []string{"video", "demo", "product", "features"},
		URL:         "https://example.com/video",
		CreatedAt:   ts,
		MimeType:    "video/mp4",
	})

	google := &AdSet{
		Name:        "Google Ads",
		Description: "Search and display ads for Google Ads platform",
		CreatedAt:   ts,
	}
	google.Ads.Set("demo003", &Ad{
		ID:          "demo003",
		Name:        "Search Ad Creative",
		Description: "Text and image combination for Google search results",
		Tags:        []string{"google", "search", "text-ad"},
		URL:         "https://example.com/landing",
		CreatedAt:   ts,
		MimeType:    "image/png",
	})

	doc.AdSets.Set(social.Name, social)
	doc.AdSets.Set(google.Name, google)
	return doc
}

// ResetCampaign restores the default campaign name and objective. The
// original creation time is kept.
func (d *Document) ResetCampaign() {
	d.SetCampaign(DefaultCampaignName, DefaultCampaignObjective)
}
