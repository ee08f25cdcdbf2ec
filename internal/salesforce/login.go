package salesforce

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// loginEnvelope builds the SOAP login request body. Credentials are
// XML-escaped; the client id rides in the CallOptions header when set.
func loginEnvelope(username, password, clientID string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="urn:partner.soap.sforce.com">`)
	if clientID != "" {
		b.WriteString(`<env:Header><urn:CallOptions><urn:client>`)
		b.WriteString(xmlEscape(clientID))
		b.WriteString(`</urn:client></urn:CallOptions></env:Header>`)
	}
	b.WriteString(`<env:Body><urn:login><urn:username>`)
	b.WriteString(xmlEscape(username))
	b.WriteString(`</urn:username><urn:password>`)
	b.WriteString(xmlEscape(password))
	b.WriteString(`</urn:password></urn:login></env:Body></env:Envelope>`)
	return b.String()
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// loginResult carries the fields extracted from a successful SOAP
// login response.
type loginResult struct {
	sessionID string
	serverURL string
}

// parseLoginResponse walks the response XML namespace-agnostically,
// collecting sessionId and serverUrl, or the fault string on failure.
func parseLoginResponse(raw []byte) (loginResult, error) {
	var result loginResult
	var faultString string

	dec := xml.NewDecoder(bytes.NewReader(raw))
	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
		case xml.CharData:
			switch current {
			case "sessionId":
				result.sessionID = string(t)
			case "serverUrl":
				result.serverURL = string(t)
			case "faultstring":
				faultString = string(t)
			}
		case xml.EndElement:
			current = ""
		}
	}

	if faultString != "" {
		return loginResult{}, fmt.Errorf("login fault: %s", faultString)
	}
	if result.sessionID == "" || result.serverURL == "" {
		return loginResult{}, fmt.Errorf("login response missing session id or server url")
	}
	return result, nil
}

// instanceFromServerURL strips the SOAP path from the login response's
// server URL, leaving the instance base URL for REST calls.
func instanceFromServerURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid server url %q", serverURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
