package assistant

// DevResponses returns canned replies for the mock provider so the flows
// work locally without model credentials.
func DevResponses() map[string]string {
	return map[string]string{
		PromptReformatSOAP: `{
  "subjective": "El paciente refiere dificultades para dormir y preocupación constante por el trabajo.",
  "objective": "Se observa inquietud motora y discurso acelerado durante la sesión.",
  "assessment": "Sintomatología compatible con ansiedad generalizada de intensidad moderada.",
  "plan": "Continuar con técnicas de reestructuración cognitiva y registro de pensamientos."
}`,
		PromptReformatDAP: `{
  "data": "El paciente refiere dificultades para dormir y preocupación constante por el trabajo.",
  "assessment": "Sintomatología compatible con ansiedad generalizada de intensidad moderada.",
  "plan": "Continuar con técnicas de reestructuración cognitiva y registro de pensamientos."
}`,
		PromptSummarize: `{
  "summary": "Sesión centrada en el manejo de la ansiedad laboral.",
  "keyPoints": ["Insomnio de conciliación", "Preocupación por el trabajo", "Buena adherencia a las tareas"]
}`,
		PromptProgressReport: "```json\n" + `{
  "summary": "El paciente ha asistido de forma regular y muestra compromiso con el tratamiento.",
  "progress": "Disminución progresiva de la ansiedad reportada y mejora en la calidad del sueño.",
  "recommendations": ["Mantener la frecuencia semanal", "Introducir técnicas de relajación"]
}` + "\n```",
	}
}
