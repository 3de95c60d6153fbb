package handoff

// pagesHTML holds the four outcome pages of the confirmation step. One
// deliberately shared "expired" page covers both unknown and expired tokens.
const pagesHTML = `
{{define "form"}}<!DOCTYPE html>
<html lang="fr">
<head><meta charset="utf-8"><title>{{.SalonName}} — Confirmation</title></head>
<body>
  <h1>Confirmez votre rendez-vous</h1>
  <p>Bonjour {{.Name}}, votre créneau du {{.When}} est réservé pour encore quelques minutes.</p>
  {{if .Error}}<p style="color:#b00">{{.Error}}</p>{{end}}
  <form method="post" action="/confirm/{{.Token}}">
    <label for="email">Votre adresse e-mail :</label>
    <input type="email" id="email" name="email" required>
    <button type="submit">Confirmer le rendez-vous</button>
  </form>
</body>
</html>{{end}}

{{define "success"}}<!DOCTYPE html>
<html lang="fr">
<head><meta charset="utf-8"><title>{{.SalonName}} — Rendez-vous confirmé</title></head>
<body>
  <h1>C'est confirmé !</h1>
  <p>{{.Name}}, votre rendez-vous du {{.When}} est enregistré. Un texto de récapitulatif vous a été envoyé.</p>
  {{if .RescheduleURL}}<p><a href="{{.RescheduleURL}}">Modifier le rendez-vous</a></p>{{end}}
  {{if .CancelURL}}<p><a href="{{.CancelURL}}">Annuler le rendez-vous</a></p>{{end}}
</body>
</html>{{end}}

{{define "expired"}}<!DOCTYPE html>
<html lang="fr">
<head><meta charset="utf-8"><title>Lien expiré</title></head>
<body>
  <h1>Ce lien n'est plus valable</h1>
  <p>Le lien de confirmation a expiré ou a déjà été utilisé. Rappelez-nous pour choisir un nouveau créneau.</p>
</body>
</html>{{end}}

{{define "error"}}<!DOCTYPE html>
<html lang="fr">
<head><meta charset="utf-8"><title>{{.SalonName}} — Erreur</title></head>
<body>
  <h1>La réservation n'a pas abouti</h1>
  <p>Une erreur est survenue lors de la création du rendez-vous. Merci de nous rappeler pour réserver à nouveau.</p>
</body>
</html>{{end}}
`
