package routing

import "math/rand"

// DirectResponse is a canned reply served without calling any agent.
type DirectResponse struct {
	Intent              IntentType
	Templates           []string
	FollowupSuggestions []string
}

// Pick selects one template variant. The random source is injectable so
// tests can pin the choice; a nil source picks the first variant.
func (d DirectResponse) Pick(rng *rand.Rand) string {
	if len(d.Templates) == 0 {
		return ""
	}
	if rng == nil {
		return d.Templates[0]
	}
	return d.Templates[rng.Intn(len(d.Templates))]
}

// EscalationMessage is sent when a complaint is handed off to a human.
const EscalationMessage = "He detectado que podrías necesitar asistencia especializada. " +
	"Te voy a conectar con uno de nuestros representantes humanos que podrá ayudarte mejor."

func defaultDirectResponses() map[IntentType]DirectResponse {
	return map[IntentType]DirectResponse{
		IntentGreeting: {
			Intent: IntentGreeting,
			Templates: []string{
				"¡Hola! 👋 Bienvenido a Apple Store. ¿En qué puedo ayudarte hoy?",
				"¡Buenos días! Soy tu asistente virtual de Apple. ¿Qué producto te interesa?",
				"¡Hola! ¿Buscas algún producto Apple en particular o tienes alguna pregunta?",
			},
			FollowupSuggestions: []string{
				"Ver productos iPhone",
				"Consultar sobre Mac",
				"Información sobre iPad",
				"Hablar con un especialista",
			},
		},
		IntentGoodbye: {
			Intent: IntentGoodbye,
			Templates: []string{
				"¡Gracias por contactarnos! 😊 Si necesitas algo más, estaré aquí para ayudarte.",
				"¡Hasta pronto! Espero haber sido de ayuda. No dudes en volver si tienes más preguntas.",
				"¡Que tengas un excelente día! Gracias por elegir Apple Store. 🍎",
			},
		},
		IntentGeneralInfo: {
			Intent: IntentGeneralInfo,
			Templates: []string{
				`📍 **Información de Apple Store:**

🕒 **Horarios:** Lunes a Domingo 9:00 AM - 9:00 PM
📞 **Teléfono:** +1 (800) APL-CARE
💬 **Chat:** Disponible 24/7
🌐 **Web:** apple.com/mx
📧 **Email:** soporte@apple.com

¿Hay algo específico sobre nuestros servicios que te gustaría saber?`,
			},
			FollowupSuggestions: []string{
				"Ver ubicaciones de tiendas",
				"Servicios disponibles",
				"Programa una cita",
				"Soporte técnico",
			},
		},
	}
}
