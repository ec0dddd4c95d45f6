package adapter

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

// rssFeed mirrors the subset of RSS 2.0 that job boards actually emit.
type rssFeed struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	// Some boards carry these in a jobs namespace; encoding/xml matches on
	// local name so the namespace prefix is irrelevant here.
	Company  string `xml:"company"`
	Location string `xml:"location"`
}

// FeedAdapter reads an RSS 2.0 job feed. Feeds carry no query interface, so
// role and location filtering happens client side after the fetch.
type FeedAdapter struct {
	base
	feedURL string
	client  *Client
}

// NewFeedAdapter creates an adapter for one RSS feed. name distinguishes
// multiple configured feeds ("weworkremotely", "remoteok", ...).
func NewFeedAdapter(name, displayName, feedURL string, client *Client) *FeedAdapter {
	return &FeedAdapter{
		base: base{
			name:        name,
			displayName: displayName,
			sourceType:  model.SourceTypeFeed,
		},
		feedURL: feedURL,
		client:  client,
	}
}

func (a *FeedAdapter) Discover(ctx context.Context, criteria model.SearchCriteria) DiscoveryResult {
	raw, err := a.client.getRaw(ctx, a.name, a.feedURL)
	if err != nil {
		return DiscoveryResult{Errors: []string{fmt.Sprintf("fetch feed: %v", err)}}
	}

	var feed rssFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return DiscoveryResult{Errors: []string{fmt.Sprintf("parse feed: %v", err)}}
	}

	var result DiscoveryResult
	for _, item := range feed.Channel.Items {
		title, company := splitFeedTitle(item.Title, item.Company)
		if !matchesRole(title, criteria.Roles) {
			continue
		}

		location := item.Location
		if location == "" {
			location = "Remote"
		}
		if !matchesLocation(location, criteria) {
			continue
		}

		description := extractText(item.Description)

		job := model.DiscoveredJob{
			ExternalID:   stableExternalID(item.GUID, item.Link),
			Title:        title,
			Company:      company,
			Location:     location,
			Description:  description,
			Requirements: extractRequirements(description),
			RemoteType:   normalizeRemote("", location),
			URL:          item.Link,
			ApplyURL:     item.Link,
		}
		if ts := parsePubDate(item.PubDate); ts != nil {
			job.PostedAt = ts
		}

		result.Jobs = append(result.Jobs, job)
	}
	return result
}

func (a *FeedAdapter) HealthCheck(ctx context.Context) HealthStatus {
	return a.client.probe(ctx, a.feedURL)
}

// splitFeedTitle handles the common "Role at Company" and "Company: Role"
// item title conventions. An explicit company element wins.
func splitFeedTitle(title, company string) (string, string) {
	title = strings.TrimSpace(title)
	if company != "" {
		return title, strings.TrimSpace(company)
	}
	if i := strings.LastIndex(title, " at "); i > 0 {
		return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+4:])
	}
	if i := strings.Index(title, ": "); i > 0 {
		return strings.TrimSpace(title[i+2:]), strings.TrimSpace(title[:i])
	}
	return title, ""
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}
