// Package genai JSON schemas for the structured decision contracts.
package genai

var topicDecisionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"is_on_topic": map[string]any{
			"type":        "boolean",
			"description": "True if the message is related to sleep, false if it is off-topic.",
		},
		"confidence": map[string]any{
			"type": "string",
			"enum": []string{"low", "medium", "high"},
		},
	},
	"required":             []string{"is_on_topic", "confidence"},
	"additionalProperties": false,
}

var riskDecisionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"risk_detected": map[string]any{
			"type":        "boolean",
			"description": "True if self-harm risk is detected.",
		},
		"risk_level": map[string]any{
			"type": "string",
			"enum": []string{"none", "low", "medium", "high", "immediate"},
		},
		"confidence": map[string]any{
			"type": "string",
			"enum": []string{"low", "medium", "high"},
		},
	},
	"required":             []string{"risk_detected", "risk_level", "confidence"},
	"additionalProperties": false,
}

var routeDecisionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"decision": map[string]any{
			"type":        "string",
			"enum":        []string{"ask_question", "generate_summary"},
			"description": "Decision to either ask another question or generate a summary.",
		},
	},
	"required":             []string{"decision"},
	"additionalProperties": false,
}

var summarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"doctor_summary": map[string]any{
			"type":        "string",
			"description": "Detailed professional medical summary for healthcare providers using clinical terminology.",
		},
		"patient_summary": map[string]any{
			"type":        "string",
			"description": "Patient-friendly summary in accessible language.",
		},
		"urgency_level": map[string]any{
			"type": "string",
			"enum": []string{"routine", "moderate", "high"},
		},
	},
	"required":             []string{"doctor_summary", "patient_summary", "urgency_level"},
	"additionalProperties": false,
}

var referralInfoSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"patient_name":    map[string]any{"type": "string", "description": "Full name of the patient."},
		"doctor_name":     map[string]any{"type": "string", "description": "Referring doctor's full name."},
		"referral_date":   map[string]any{"type": "string", "description": "Date of the referral, e.g. '12 March 2024'."},
		"referred_to":     map[string]any{"type": "string", "description": "Specialist, department, or hospital referred to."},
		"referral_reason": map[string]any{"type": "string", "description": "Reason for the referral in detail."},
	},
	"required":             []string{"patient_name", "doctor_name", "referral_date", "referred_to", "referral_reason"},
	"additionalProperties": false,
}
