package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

const (
	SearchPath    = "/vacancies"
	EmployersPath = "/employers"
)

type SearchParams struct {
	Text string `yaml:"text"`
	// hhparam is custom tag for reflect. Please see below.
	Areas       []int    `hhparam:"area"`
	OrderBy     string   `yaml:"order_by"`
	Employer    string   `yaml:"employer_id" mapstructure:"employer_id"`
	SearchField string   `yaml:"search_field" mapstructure:"search_field"`
	Schedules   []string `hhparam:"schedule"`
	Employment  []string `hhparam:"employment"`
	PerPage     string   `yaml:"per_page" mapstructure:"per_page"`
	Experience  string   `yaml:"experience"`
	Period      uint     `yaml:"period"`
	Salary      uint     `yaml:"salary"`
	Currency    string   `yaml:"currency"`
}

// Search returns vacancies matching params.
func (c *Client) Search(ctx context.Context, params *SearchParams) (*Vacancies, error) {
	// Set per_page max as possible. It should be faster.
	if params.PerPage == "" {
		params.PerPage = perPage
	}

	items, err := c.GetItems(ctx, fmt.Sprintf("%s%s", c.APIURL, SearchPath), buildParams(params))
	if err != nil {
		return nil, err
	}

	var vacancies []*Vacancy
	if err := decodeItems(items, &vacancies); err != nil {
		return nil, fmt.Errorf("decoding vacancies: %w", err)
	}

	return &Vacancies{Items: vacancies}, nil
}

// Employer is a short employer record from the employers search.
type Employer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AlternateURL string `json:"alternate_url,omitempty"`
	OpenVacances int    `json:"open_vacancies,omitempty"`
}

// FindEmployer returns the best match for name, or nil when hh.ru knows no such employer.
func (c *Client) FindEmployer(ctx context.Context, name string) (*Employer, error) {
	q := url.Values{}
	q.Set("text", name)
	q.Set("only_with_vacancies", "true")
	q.Set("per_page", "20")

	// One page is plenty to pick a name match.
	items, err := c.getItems(ctx, fmt.Sprintf("%s%s", c.APIURL, EmployersPath), q, 1)
	if err != nil {
		return nil, err
	}

	var employers []*Employer
	if err := decodeItems(items, &employers); err != nil {
		return nil, fmt.Errorf("decoding employers: %w", err)
	}

	return pickEmployer(employers, name), nil
}

// pickEmployer prefers an exact case-insensitive name match, then the employer
// with the most open vacancies.
func pickEmployer(employers []*Employer, name string) *Employer {
	var best *Employer
	for _, e := range employers {
		if equalFold(e.Name, name) {
			return e
		}
		if best == nil || e.OpenVacances > best.OpenVacances {
			best = e
		}
	}
	return best
}

func decodeItems(items []Item, target interface{}) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   target,
		TagName:  "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(items)
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		// Our custom tag is using here.
		key := field.Tag.Get("hhparam")
		if key == "" {
			// Failover to default tag if our tag do not exist.
			key = field.Tag.Get("yaml")
		}
		value := reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface()

		switch v := value.(type) {
		case []int:
			for _, item := range v {
				q.Add(key, strconv.Itoa(item))
			}
		case []string:
			for _, item := range v {
				q.Add(key, item)
			}
		default:
			s := fmt.Sprintf("%v", v)
			if s != "" && s != "0" {
				q.Set(key, s)
			}
		}
	}

	return q
}
