package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/venator/internal/models"
)

// Profile page selectors. The portal renders profile pages from a common
// layout; each field carries a fallback selector for the logged-out/lite
// variant of the page.
var profileSelectors = struct {
	name       []string
	headline   []string
	location   []string
	bio        []string
	skills     []string
	experience []string
	company    []string
}{
	name:       []string{"main h1", "h1.top-card-layout__title", "h1"},
	headline:   []string{"main .text-body-medium.break-words", "h2.top-card-layout__headline"},
	location:   []string{"main .text-body-small.inline.break-words", ".top-card-layout__first-subline .top-card__subline-item"},
	bio:        []string{"section.summary div.core-section-container__content", "#about ~ div .inline-show-more-text"},
	skills:     []string{"section.skills li.skills__item", "#skills ~ div li span[aria-hidden=true]"},
	experience: []string{"section.experience li.experience-item", "#experience ~ div li.artdeco-list__item"},
	company:    []string{"section.experience li.experience-item h4 a", "#experience ~ div li a[data-field=experience_company_logo]"},
}

// ParseProfile extracts a structured profile record from rendered page HTML.
// Returns nil when the page contains no recognizable profile (treated as a
// failed extraction by the caller).
func ParseProfile(html, pageURL, leadID, ownerID string) (*models.LeadProfile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	name := firstText(doc, profileSelectors.name)
	if name == "" {
		return nil, nil
	}

	profile := &models.LeadProfile{
		LeadID:     leadID,
		ProfileURL: pageURL,
		OwnerID:    ownerID,
		Name:       name,
		Headline:   firstText(doc, profileSelectors.headline),
		Location:   firstText(doc, profileSelectors.location),
		Bio:        firstText(doc, profileSelectors.bio),
	}

	for _, sel := range profileSelectors.skills {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if skill := collapseWhitespace(s.Text()); skill != "" {
				profile.Skills = append(profile.Skills, skill)
			}
		})
		if len(profile.Skills) > 0 {
			break
		}
	}

	var experience []string
	for _, sel := range profileSelectors.experience {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if entry := collapseWhitespace(s.Text()); entry != "" {
				experience = append(experience, entry)
			}
		})
		if len(experience) > 0 {
			break
		}
	}
	profile.Experience = strings.Join(experience, " | ")

	for _, sel := range profileSelectors.company {
		node := doc.Find(sel).First()
		if node.Length() > 0 {
			profile.CompanyName = collapseWhitespace(node.Text())
			if href, ok := node.Attr("href"); ok {
				profile.CompanyURL = href
			}
			break
		}
	}

	return profile, nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() > 0 {
			if text := collapseWhitespace(node.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
