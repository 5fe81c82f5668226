package scoring

import "fmt"

// DefaultName addresses respondents who left the nickname empty.
const DefaultName = "Cher utilisateur"

// Message returns the headline and advice shown for a tier.
func Message(t Tier, name string) (headline, body string) {
	if name == "" {
		name = DefaultName
	}
	headline = fmt.Sprintf("%s, résultat de votre test", name)
	switch t {
	case TierLow:
		body = fmt.Sprintf("Félicitations %s ! Votre score de risque est faible. "+
			"Cela suggère que vos habitudes actuelles sont globalement favorables à une bonne santé. "+
			"Continuez à prendre soin de vous et à maintenir ces pratiques saines.", name)
	case TierModerate:
		body = fmt.Sprintf("Attention %s, votre score indique un risque modéré. "+
			"Ce n'est pas une fatalité, mais un signal pour envisager quelques ajustements dans votre mode de vie. "+
			"De petits changements peuvent faire une grande différence pour votre bien-être futur. "+
			"Nous vous encourageons à explorer les facteurs qui pourraient contribuer à ce risque "+
			"et à discuter de ces points avec un professionnel de la santé.", name)
	default:
		body = fmt.Sprintf("Important %s : votre score est élevé. "+
			"Il est crucial de comprendre que ceci n'est pas un diagnostic médical, "+
			"mais un indicateur d'un risque potentiellement plus élevé. "+
			"Nous vous recommandons vivement de consulter un professionnel de la santé "+
			"pour une évaluation approfondie et des conseils personnalisés.", name)
	}
	return headline, body
}
