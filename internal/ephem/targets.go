package ephem

import "strings"

// TargetID is a NAIF SPICE ID for a body.
type TargetID int

// TargetInfo maps a catalog body to its Horizons command.
type TargetInfo struct {
	Name   string   // catalog name, as used in snapshots
	NAIFID TargetID // NAIF SPICE ID of the body center
}

// Barycenter IDs (1-9) are avoided; Horizons resolves x99 to the body center.
// Sourced from https://naif.jpl.nasa.gov/pub/naif/toolkit_docs/C/req/naif_ids.html
const (
	NAIFMercury TargetID = 199
	NAIFVenus   TargetID = 299
	NAIFEarth   TargetID = 399
	NAIFMars    TargetID = 499
	NAIFJupiter TargetID = 599
	NAIFSaturn  TargetID = 699
	NAIFUranus  TargetID = 799
	NAIFNeptune TargetID = 899
	NAIFPluto   TargetID = 999
)

// Targets lists the bodies a snapshot covers, in heliocentric order.
var Targets = []TargetInfo{
	{Name: "Mercury", NAIFID: NAIFMercury},
	{Name: "Venus", NAIFID: NAIFVenus},
	{Name: "Earth", NAIFID: NAIFEarth},
	{Name: "Mars", NAIFID: NAIFMars},
	{Name: "Jupiter", NAIFID: NAIFJupiter},
	{Name: "Saturn", NAIFID: NAIFSaturn},
	{Name: "Uranus", NAIFID: NAIFUranus},
	{Name: "Neptune", NAIFID: NAIFNeptune},
	{Name: "Pluto", NAIFID: NAIFPluto},
}

// TargetsByName indexes Targets by lower-case name.
var TargetsByName map[string]*TargetInfo

func init() {
	TargetsByName = make(map[string]*TargetInfo, len(Targets))
	for i := range Targets {
		TargetsByName[strings.ToLower(Targets[i].Name)] = &Targets[i]
	}
}

// GetNAIFID returns the NAIF ID for a body name, or 0 if unknown.
func GetNAIFID(name string) TargetID {
	if info, ok := TargetsByName[strings.ToLower(name)]; ok {
		return info.NAIFID
	}
	return 0
}
