// SPDX-License-Identifier: MPL-2.0

package nuget

// Registration resource types in order of preference. 3.6.0 includes SemVer 2.0.0 packages.
var registrationResourceTypes = []string{
	"RegistrationsBaseUrl/3.6.0",
	"RegistrationsBaseUrl/3.4.0",
	"RegistrationsBaseUrl",
}

type (
	// serviceIndex is the v3 entry document (index.json).
	serviceIndex struct {
		Version   string     `json:"version"`
		Resources []resource `json:"resources"`
	}

	resource struct {
		ID   string `json:"@id"`
		Type string `json:"@type"`
	}

	// registrationIndex lists the pages of a package registration.
	registrationIndex struct {
		Count int                `json:"count"`
		Items []registrationPage `json:"items"`
	}

	// registrationPage holds a version range of leaves. Large packages omit
	// Items and require fetching the page by ID.
	registrationPage struct {
		ID    string             `json:"@id"`
		Count int                `json:"count"`
		Items []registrationLeaf `json:"items,omitempty"`
		Lower string             `json:"lower"`
		Upper string             `json:"upper"`
	}

	registrationLeaf struct {
		ID           string        `json:"@id"`
		CatalogEntry *catalogEntry `json:"catalogEntry"`
	}

	catalogEntry struct {
		PackageID        string            `json:"id"`
		Version          string            `json:"version"`
		Published        string            `json:"published,omitempty"`
		Listed           *bool             `json:"listed,omitempty"`
		DependencyGroups []dependencyGroup `json:"dependencyGroups,omitempty"`
	}

	dependencyGroup struct {
		TargetFramework string       `json:"targetFramework,omitempty"`
		Dependencies    []dependency `json:"dependencies,omitempty"`
	}

	dependency struct {
		ID    string `json:"id"`
		Range string `json:"range,omitempty"`
	}
)

func (s *serviceIndex) registrationBase() (string, bool) {
	for _, want := range registrationResourceTypes {
		for _, r := range s.Resources {
			if r.Type == want && r.ID != "" {
				return r.ID, true
			}
		}
	}
	return "", false
}
