package flow

import "fmt"

const (
	genericGreeting = "Hello! I'm Dr. SleepAI, your AI sleep medicine specialist. I'm here to help you with your sleep concerns. Can you please tell me what's been troubling you with your sleep? Feel free to describe your main sleep issues or concerns."

	offTopicFallbackRedirect = "Please tell me about your sleep concerns."

	offTopicTermination = "I can only discuss topics related to sleep. Since we are not making progress, I have to end this conversation. Goodbye."

	immediateRiskMessage = "I've detected that you may be in immediate danger. Your safety is my top priority. Please contact emergency services (911/112) or a crisis hotline immediately. I must end this conversation now to encourage you to seek immediate help."

	elevatedRiskMessage = "I've detected that you might be in distress. My purpose is to discuss sleep, but your safety is most important. Please consider reaching out to a crisis hotline or a mental health professional immediately. I must end this conversation now."

	fallbackQuestion = "Could you tell me more about your sleep? For example, how would you describe a typical night for you?"

	closingFailureMessage = "Thank you for the additional information. Your comprehensive sleep consultation is now complete. Both patient and medical summaries have been generated for your healthcare provider."
)

func personalizedGreeting(patientName string) string {
	if patientName == "" {
		return genericGreeting
	}
	return fmt.Sprintf("Hello %s! I'm Dr. SleepAI, your AI sleep medicine specialist. I'm here to help you with your sleep concerns. Could you please tell me in your own words what's been troubling you with your sleep?", patientName)
}

func offTopicWarning(lastQuestion string) string {
	redirect := lastQuestion
	if redirect == "" {
		redirect = offTopicFallbackRedirect
	}
	return fmt.Sprintf("I can only help with sleep-related issues. Let's get back on track. %s", redirect)
}

func confirmationMessage(patientSummary string) string {
	return fmt.Sprintf("Based on our comprehensive consultation, here is your personalized sleep assessment:\n\n**YOUR SLEEP SITUATION:**\n%s\n\nIs there anything important you would like to add or correct about this summary? You can add information only once.\n\n---\n*Note: A detailed medical summary has also been generated for your healthcare provider.*", patientSummary)
}

func confirmationFallbackMessage(plainSummary string) string {
	return fmt.Sprintf("Based on our conversation, here is your sleep assessment:\n\n%s\n\nIs there anything you'd like to add or correct?", plainSummary)
}

func closingMessage(patientSummary string) string {
	return fmt.Sprintf("Thank you for the additional information. Here is your final sleep assessment:\n\n**UPDATED SLEEP SITUATION:**\n%s\n\nThis concludes our comprehensive sleep consultation. Both patient and medical summaries are now complete and ready for your healthcare provider.\n\n---\n*Dr. SleepAI - AI Sleep Medicine Specialist*", patientSummary)
}
