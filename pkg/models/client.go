package models

import (
	"fmt"
	"strings"
)

// Client is a regional release of the game
type Client string

const (
	ClientEN Client = "EN"
	ClientCN Client = "CN"
	ClientJP Client = "JP"
	ClientKR Client = "KR"
	ClientTW Client = "TW"
)

// AllClients lists every known client
var AllClients = []Client{ClientEN, ClientCN, ClientJP, ClientKR, ClientTW}

var packageNames = map[Client]string{
	ClientEN: "com.YoStarEN.AzurLane",
	ClientCN: "",
	ClientJP: "com.YoStarJP.AzurLane",
	ClientKR: "kr.txwy.and.blhx",
	ClientTW: "com.hkmanjuu.azurlane.gp",
}

// PackageName returns the Android package name, empty if the client has none
func (c Client) PackageName() string {
	return packageNames[c]
}

// ParseClient parses a client name case-insensitively
func ParseClient(s string) (Client, error) {
	c := Client(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := packageNames[c]; !ok {
		return "", fmt.Errorf("unknown client %q", s)
	}
	return c, nil
}

// ClientFromPackageName finds the client owning an Android package name
func ClientFromPackageName(pkg string) (Client, bool) {
	if pkg == "" {
		return "", false
	}
	for _, c := range AllClients {
		if packageNames[c] == pkg {
			return c, true
		}
	}
	return "", false
}
