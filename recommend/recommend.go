// Package recommend implements the rule-based menu recommendation engine as
// pure functions over (order history, catalog, current time). There is no
// hidden state; the same inputs always produce the same ranking.
package recommend

import (
	"sort"
	"time"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

const maxResults = 3

// UserResult carries the ranked items plus the category the ranking was
// anchored on.
type UserResult struct {
	Items            []models.MenuItem `json:"recommendations"`
	FavoriteCategory string            `json:"favorite_category"`
}

// ForTimeOfDay returns available catalog items for the meal window containing
// now: breakfast before 11:00, lunch 11:00-16:00, snacks/dinner after. On
// weekends popular items rank first regardless of category.
func ForTimeOfDay(catalog []models.MenuItem, now time.Time) []models.MenuItem {
	categories := mealCategories(now.Hour())
	weekend := now.Weekday() == time.Saturday || now.Weekday() == time.Sunday

	var picks []models.MenuItem
	for _, item := range catalog {
		if !item.Available {
			continue
		}
		if categories[item.Category] || (weekend && item.Popular) {
			picks = append(picks, item)
		}
	}

	sort.SliceStable(picks, func(i, j int) bool {
		if picks[i].Popular != picks[j].Popular {
			return picks[i].Popular
		}
		return picks[i].Name < picks[j].Name
	})

	if len(picks) > 5 {
		picks = picks[:5]
	}
	return picks
}

func mealCategories(hour int) map[string]bool {
	switch {
	case hour < 11:
		return map[string]bool{"breakfast": true, "beverages": true}
	case hour < 16:
		return map[string]bool{"lunch": true, "meals": true}
	default:
		return map[string]bool{"snacks": true, "dinner": true}
	}
}

// ForUser picks unseen items from the user's most-ordered category. When
// fewer than maxResults candidates exist, the result is padded with globally
// popular unseen items only; once those run out the result stays short.
func ForUser(history []models.OrderItem, catalog []models.MenuItem) UserResult {
	byID := make(map[int]models.MenuItem, len(catalog))
	for _, item := range catalog {
		byID[item.ID] = item
	}

	seen := make(map[int]bool, len(history))
	categoryCounts := make(map[string]int)
	for _, h := range history {
		seen[h.ItemID] = true
		if item, ok := byID[h.ItemID]; ok {
			categoryCounts[item.Category] += h.Quantity
		}
	}

	favorite := ""
	for category, count := range categoryCounts {
		if count > categoryCounts[favorite] || (count == categoryCounts[favorite] && category < favorite) || favorite == "" {
			favorite = category
		}
	}

	var unseen []models.MenuItem
	for _, item := range catalog {
		if item.Available && !seen[item.ID] {
			unseen = append(unseen, item)
		}
	}
	sort.SliceStable(unseen, func(i, j int) bool {
		if unseen[i].Popular != unseen[j].Popular {
			return unseen[i].Popular
		}
		return unseen[i].Name < unseen[j].Name
	})

	var picks []models.MenuItem
	picked := make(map[int]bool)
	for _, item := range unseen {
		if item.Category == favorite {
			picks = append(picks, item)
			picked[item.ID] = true
		}
	}

	// Pad only with popular unseen items. When those run out the result
	// stays short rather than filling with arbitrary items.
	if len(picks) < maxResults {
		for _, item := range unseen {
			if len(picks) >= maxResults {
				break
			}
			if !picked[item.ID] && item.Popular {
				picks = append(picks, item)
				picked[item.ID] = true
			}
		}
	}

	if len(picks) > maxResults {
		picks = picks[:maxResults]
	}
	return UserResult{Items: picks, FavoriteCategory: favorite}
}
