package users

import (
	"bytes"
	"html/template"
)

const newUserSubject = "Bienvenido - Credenciales de acceso"

var newUserTemplate = template.Must(template.New("new_user").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #111827;">
    <h1>Bienvenido</h1>
    <p>Se creó tu cuenta de acceso al portal.</p>
    <p>Tu contraseña temporal es: <strong>{{.TempPassword}}</strong></p>
    <p>Por seguridad, cambiala después de iniciar sesión.</p>
  </body>
</html>`))

func renderNewUserEmail(tempPassword string) (string, error) {
	var b bytes.Buffer
	if err := newUserTemplate.Execute(&b, struct{ TempPassword string }{tempPassword}); err != nil {
		return "", err
	}
	return b.String(), nil
}
