package ecs

import "encoding/xml"

const (
	soapEnvNS      = "http://schemas.xmlsoap.org/soap/envelope/"
	ecsNS          = "http://www.dcsf.gov.uk/20090308/OnlineQueryService"
	serviceVersion = "20170701"
	soapAction     = ecsNS + "/SoapFsmCheck"
)

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	SoapEnv string      `xml:"xmlns:soapenv,attr"`
	ECS     string      `xml:"xmlns:ecs,attr"`
	Header  struct{}    `xml:"soapenv:Header"`
	Body    requestBody `xml:"soapenv:Body"`
}

type requestBody struct {
	Check fsmCheck `xml:"ecs:SoapFsmCheck"`
}

type fsmCheck struct {
	Request checkRequest `xml:"ecs:eligibilityCheck>ecs:EligibilityCheckRequest"`
}

type checkRequest struct {
	SurName        string `xml:"ecs:SurName"`
	DateOfBirth    string `xml:"ecs:DateOfBirth"`
	NiNo           string `xml:"ecs:NiNo"`
	NASSNumber     string `xml:"ecs:NASSNumber"`
	LocalAuthority string `xml:"ecs:LA"`
	ServiceVersion string `xml:"ecs:ServiceVersion"`
}

// Response elements are matched by local name so namespace prefixes don't matter.
type responseEnvelope struct {
	Result *checkResult `xml:"Body>SoapFsmCheckResponse>SoapFsmCheckResult>EligibilityCheckResult"`
	Fault  *soapFault   `xml:"Body>Fault"`
}

type checkResult struct {
	Status    string `xml:"Status"`
	ErrorCode string `xml:"ErrorCode"`
	Qualifier string `xml:"Qualifier"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}
