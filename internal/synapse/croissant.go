package synapse

import (
	"fmt"
	"strings"
	"time"
)

// DatasetsTableID is the public Sage Bionetworks datasets catalogue table.
const DatasetsTableID = "syn61609402"

// ConvertToCroissant renders a datasets table query result as Croissant
// metadata (schema.org JSON-LD), one dataset entry per table row.
func ConvertToCroissant(table *TableQueryResult) map[string]interface{} {
	tableURL := fmt.Sprintf("https://www.synapse.org/#!Synapse:%s", DatasetsTableID)

	metadata := map[string]interface{}{
		"@context": []interface{}{
			"https://schema.org/",
			map[string]interface{}{
				"csv": "http://www.w3.org/ns/csvw#",
				"dc":  "http://purl.org/dc/elements/1.1/",
			},
		},
		"@type":               "Dataset",
		"name":                "Sage Bionetworks Public Datasets",
		"description":         "Collection of public datasets from Sage Bionetworks",
		"url":                 tableURL,
		"license":             "https://creativecommons.org/licenses/by/4.0/",
		"isAccessibleForFree": true,
		"datePublished":       time.Now().Format("2006-01-02"),
		"distribution": map[string]interface{}{
			"@type":          "DataDownload",
			"contentUrl":     tableURL,
			"encodingFormat": "application/json",
		},
		"creator": map[string]interface{}{
			"@type": "Organization",
			"name":  "Sage Bionetworks",
			"url":   "https://sagebionetworks.org/",
		},
	}

	datasets := make([]map[string]interface{}, 0, len(table.Rows))
	for _, rowValues := range table.Rows {
		row := make(map[string]interface{}, len(table.Headers))
		for i, header := range table.Headers {
			if i < len(rowValues) {
				row[header] = rowValues[i]
			}
		}
		if entry := datasetEntry(row); entry != nil {
			datasets = append(datasets, entry)
		}
	}
	metadata["dataset"] = datasets

	return metadata
}

// datasetEntry builds one Croissant dataset entry from a catalogue row.
// Rows without an ID or title are skipped.
func datasetEntry(row map[string]interface{}) map[string]interface{} {
	datasetID := stringValue(row, "id", "")
	title := stringValue(row, "title", "")
	if datasetID == "" || title == "" {
		return nil
	}

	var keywords []string
	if focus := stringValue(row, "diseaseFocus", ""); focus != "" {
		keywords = strings.Split(focus, ",")
	} else {
		keywords = []string{}
	}

	entry := map[string]interface{}{
		"@type":                "Dataset",
		"@id":                  fmt.Sprintf("https://www.synapse.org/#!Synapse:%s", datasetID),
		"name":                 title,
		"description":          stringValue(row, "description", "No description available"),
		"keywords":             keywords,
		"measurementTechnique": stringValue(row, "dataType", "Not specified"),
		"temporalCoverage":     stringValue(row, "yearProcessed", ""),
		"conditionsOfAccess":   "https://sagebionetworks.org/tools_resources/data-use-agreements/",
	}

	if funding := stringValue(row, "fundingAgency", ""); funding != "" {
		entry["funder"] = map[string]interface{}{
			"@type": "Organization",
			"name":  funding,
		}
	}

	return entry
}

// stringValue reads a string cell, treating missing keys, nil cells, and
// non-string values as absent.
func stringValue(row map[string]interface{}, key, fallback string) string {
	value, ok := row[key]
	if !ok || value == nil {
		return fallback
	}
	if s, ok := value.(string); ok && s != "" {
		return s
	}
	return fallback
}
