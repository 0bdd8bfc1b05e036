package tmdb

import (
	"strconv"
)

const (
	unknownDirector = "Unknown"
	maxCast         = 5
)

// Details is a TMDb movie reduced to the fields the catalog stores.
type Details struct {
	TMDBID      int64
	Title       string
	ReleaseYear int
	Director    string
	Cast        []string
	Genres      []string
	Plot        string
	Poster      string
	Backdrop    string
}

// ListItem is one entry of a trending or search listing.
type ListItem struct {
	TMDBID      int64
	Title       string
	ReleaseYear int
	Plot        string
	Poster      string
	Backdrop    string
	// VoteAverage is the upstream score on TMDb's 10-point scale.
	VoteAverage float64
}

// Page is one page of a listing.
type Page struct {
	Page         int
	TotalPages   int
	TotalResults int
	Results      []ListItem
}

type detailsResponse struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	ReleaseDate  string      `json:"release_date"`
	Overview     string      `json:"overview"`
	PosterPath   string      `json:"poster_path"`
	BackdropPath string      `json:"backdrop_path"`
	Genres       []genre     `json:"genres"`
	Credits      *creditsDoc `json:"credits"`
}

type genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type creditsDoc struct {
	Cast []person `json:"cast"`
	Crew []person `json:"crew"`
}

type person struct {
	Name string `json:"name"`
	Job  string `json:"job,omitempty"`
}

type listResponse struct {
	Page         int          `json:"page"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
	Results      []listResult `json:"results"`
}

type listResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	ReleaseDate  string  `json:"release_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
}

func convertDetails(payload detailsResponse, imageBase string) *Details {
	details := &Details{
		TMDBID:      payload.ID,
		Title:       payload.Title,
		ReleaseYear: releaseYear(payload.ReleaseDate),
		Director:    unknownDirector,
		Cast:        []string{},
		Genres:      make([]string, 0, len(payload.Genres)),
		Plot:        payload.Overview,
		Poster:      imageURL(imageBase, payload.PosterPath),
		Backdrop:    imageURL(imageBase, payload.BackdropPath),
	}
	for _, g := range payload.Genres {
		details.Genres = append(details.Genres, g.Name)
	}
	if payload.Credits != nil {
		for _, member := range payload.Credits.Crew {
			if member.Job == "Director" {
				details.Director = member.Name
				break
			}
		}
		for i, member := range payload.Credits.Cast {
			if i == maxCast {
				break
			}
			details.Cast = append(details.Cast, member.Name)
		}
	}
	return details
}

func convertPage(payload listResponse, imageBase string) *Page {
	page := &Page{
		Page:         payload.Page,
		TotalPages:   payload.TotalPages,
		TotalResults: payload.TotalResults,
		Results:      make([]ListItem, 0, len(payload.Results)),
	}
	for _, r := range payload.Results {
		page.Results = append(page.Results, ListItem{
			TMDBID:      r.ID,
			Title:       r.Title,
			ReleaseYear: releaseYear(r.ReleaseDate),
			Plot:        r.Overview,
			Poster:      imageURL(imageBase, r.PosterPath),
			Backdrop:    imageURL(imageBase, r.BackdropPath),
			VoteAverage: r.VoteAverage,
		})
	}
	return page
}

// releaseYear returns the leading four digits of a YYYY-MM-DD date, or 0.
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 0 {
		return 0
	}
	return year
}

func imageURL(base, path string) string {
	if path == "" {
		return ""
	}
	return base + path
}
