// Package aws lists the public EC2 ping endpoints, one per region, used as
// well-known latency probe targets.
package aws

import (
	"fmt"
	"sort"
	"strings"
)

// Region is an AWS region and the endpoint that answers latency probes.
type Region struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

var regionNames = map[string]string{
	"ap-northeast-1": "Asia Pacific (Tokyo)",
	"ap-northeast-2": "Asia Pacific (Seoul)",
	"ap-northeast-3": "Asia Pacific (Osaka)",
	"ap-south-1":     "Asia Pacific (Mumbai)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-southeast-2": "Asia Pacific (Sydney)",
	"ca-central-1":   "Canada (Central)",
	"eu-central-1":   "Europe (Frankfurt)",
	"eu-north-1":     "Europe (Stockholm)",
	"eu-west-1":      "Europe (Ireland)",
	"eu-west-2":      "Europe (London)",
	"eu-west-3":      "Europe (Paris)",
	"sa-east-1":      "South America (São Paulo)",
	"us-east-1":      "US East (N. Virginia)",
	"us-east-2":      "US East (Ohio)",
	"us-west-1":      "US West (N. California)",
	"us-west-2":      "US West (Oregon)",
}

// Regions returns every known region sorted by ID.
func Regions() []Region {
	regions := make([]Region, 0, len(regionNames))
	for id, name := range regionNames {
		regions = append(regions, Region{ID: id, Name: name, Endpoint: Endpoint(id)})
	}
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].ID < regions[j].ID
	})
	return regions
}

// Lookup returns the region with the given ID.
func Lookup(id string) (Region, bool) {
	name, ok := regionNames[id]
	if !ok {
		return Region{}, false
	}
	return Region{ID: id, Name: name, Endpoint: Endpoint(id)}, true
}

// Select returns the regions named by ids, in order. An empty list selects
// every region. Unknown IDs are reported together in one error.
func Select(ids []string) ([]Region, error) {
	if len(ids) == 0 {
		return Regions(), nil
	}

	regions := make([]Region, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		r, ok := Lookup(strings.TrimSpace(id))
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		regions = append(regions, r)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown regions: %s", strings.Join(unknown, ", "))
	}
	return regions, nil
}

// Endpoint returns the EC2 ping endpoint URL for a given region ID.
func Endpoint(regionID string) string {
	return fmt.Sprintf("https://ec2.%s.amazonaws.com/ping", regionID)
}
