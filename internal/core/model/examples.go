// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model defines the data structures for the application. This file,
// `examples.go`, provides factory functions for creating hardcoded, example
// instances of the data models.
//
// These example objects are used for "few-shot" prompting of the generative
// AI models. Embedding a concrete example of the desired JSON output in the
// prompt keeps the model's responses consistent, correctly formatted, and
// easy to parse.
package model

// GetExampleAnalysis creates a sample VideoAnalysis object. It is rendered
// into the analysis prompt so the model sees the exact JSON shape expected
// back, including the nested metrics, dynamic sections and entity lists.
//
// Outputs:
//   - *VideoAnalysis: A pointer to a hardcoded VideoAnalysis object.
func GetExampleAnalysis() *VideoAnalysis {
	return &VideoAnalysis{
		ExecutiveSummary: "The presenter walks through NVIDIA's third quarter earnings, arguing that data " +
			"center revenue growth is decelerating but still well ahead of consensus. The second half of the " +
			"video covers the implications for the broader semiconductor supply chain.",
		KeyInsights: []string{
			"Data center revenue grew 41% year over year, beating consensus by roughly $2B.",
			"Gross margin guidance implies pricing power is holding despite new competition.",
			"The presenter expects supply constraints to ease by the second quarter of next year.",
		},
		Topics: []string{"NVIDIA", "semiconductors", "earnings", "data centers"},
		Metrics: []VideoMetric{
			{Label: "Data center revenue", Value: "$14.5B", Context: "Q3, up 41% YoY"},
			{Label: "Gross margin", Value: "74%", Context: "guided for Q4"},
		},
		KeyQuotes: []string{
			"The bottleneck is no longer chips, it's power and cooling.",
		},
		ActionableTakeaways: []string{
			"Watch the Q4 gross margin print as the first sign of pricing pressure.",
		},
		ContentType:       "financial_analysis",
		EstimatedReadTime: "4 min read",
		DynamicSections: []DynamicSection{
			{
				Type:    "stock_analysis",
				Title:   "NVDA levels discussed",
				Content: "The presenter identifies support at $480 and resistance at $520.",
				Data: map[string]interface{}{
					"symbol":     "NVDA",
					"support":    "480",
					"resistance": "520",
				},
			},
		},
		Entities: EntityData{
			People:    []string{"Jensen Huang"},
			Companies: []string{"NVIDIA", "TSMC"},
			Products:  []string{"H100"},
			Locations: []string{"Taiwan"},
		},
		ConfidenceScore: 0.9,
	}
}

// GetExampleChartData creates a sample ChartData object for few-shot
// prompting of the chart derivation step. The example demonstrates every
// chart family the dashboard can render so the model knows all of them are
// available.
//
// Outputs:
//   - *ChartData: A pointer to a hardcoded ChartData object.
func GetExampleChartData() *ChartData {
	return &ChartData{
		KeyPoints: []ChartPoint{
			{Label: "Data center growth", Score: 90},
			{Label: "Margin durability", Score: 75},
			{Label: "Supply constraints", Score: 60},
		},
		Timeline: []TimelinePoint{
			{Step: "Intro", Open: 2, Closed: 0},
			{Step: "Earnings review", Open: 3, Closed: 1},
			{Step: "Outlook", Open: 3, Closed: 3},
		},
		Charts: []CustomChart{
			{
				Type:      "support_resistance",
				Title:     "NVDA price levels",
				ChartType: "bar",
				Data: []map[string]interface{}{
					{"label": "Support", "value": 480},
					{"label": "Current", "value": 505},
					{"label": "Resistance", "value": 520},
				},
			},
		},
		TopicStrengths: []ChartPoint{
			{Label: "NVIDIA", Score: 95},
			{Label: "semiconductors", Score: 70},
			{Label: "earnings", Score: 65},
		},
		ContentType: "financial_analysis",
	}
}
