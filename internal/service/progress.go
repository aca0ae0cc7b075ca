package service

import (
	"math"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

// Percent returns round(100*completed/total), or 0 when total is 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// ComputeProgress summarizes the completed lessons of a course per module and
// overall. It also sets Completed on every lesson of modules.
func ComputeProgress(courseID, customerID int, modules []models.CourseModule, done map[int]bool) *models.CourseProgress {
	p := &models.CourseProgress{
		CourseID:   courseID,
		CustomerID: customerID,
		Modules:    make([]models.ModuleProgress, 0, len(modules)),
	}
	for i := range modules {
		mp := models.ModuleProgress{ModuleID: modules[i].ID, Total: len(modules[i].Contents)}
		for j := range modules[i].Contents {
			ct := &modules[i].Contents[j]
			ct.Completed = done[ct.ID]
			if ct.Completed {
				mp.Completed++
			}
		}
		mp.Percent = Percent(mp.Completed, mp.Total)
		p.Total += mp.Total
		p.Completed += mp.Completed
		p.Modules = append(p.Modules, mp)
	}
	p.Percent = Percent(p.Completed, p.Total)
	return p
}

// Readiness scores how complete a course is for publishing.
type Readiness struct {
	Percent int      `json:"percent"`
	Missing []string `json:"missing"`
}

// CourseReadiness checks the publishing checklist of a course whose modules
// are loaded.
func CourseReadiness(c *models.Course) Readiness {
	lessons := 0
	emptyModule := len(c.Modules) == 0
	for _, m := range c.Modules {
		lessons += len(m.Contents)
		if len(m.Contents) == 0 {
			emptyModule = true
		}
	}
	checks := []struct {
		name string
		ok   bool
	}{
		{"title", c.Title != ""},
		{"description", c.Description != ""},
		{"cover", c.CoverURL != ""},
		{"prices", len(c.Prices) > 0},
		{"lessons", lessons > 0},
		{"module_lessons", !emptyModule},
	}
	r := Readiness{Missing: []string{}}
	passed := 0
	for _, ch := range checks {
		if ch.ok {
			passed++
		} else {
			r.Missing = append(r.Missing, ch.name)
		}
	}
	r.Percent = Percent(passed, len(checks))
	return r
}
