package call

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/hearth/internal/config"
	"github.com/BioHazard786/hearth/internal/protocol"
)

// ICEServers builds the ICE server list from client configuration.
func ICEServers(cfg *config.Config) []pion.ICEServer {
	var servers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		servers = append(servers, pion.ICEServer{URLs: stun})
	}

	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}
	return servers
}

func newPeerConnection(api *pion.API, servers []pion.ICEServer, relayOnly bool) (*pion.PeerConnection, error) {
	conf := pion.Configuration{ICEServers: servers}
	if relayOnly {
		conf.ICETransportPolicy = pion.ICETransportPolicyRelay
	}
	if api != nil {
		return api.NewPeerConnection(conf)
	}
	return pion.NewPeerConnection(conf)
}

func createDataChannel(pc *pion.PeerConnection) (*pion.DataChannel, error) {
	ordered := true
	return pc.CreateDataChannel(channelLabel, &pion.DataChannelInit{Ordered: &ordered})
}

func createOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return pc.LocalDescription(), nil
}

func createAnswer(pc *pion.PeerConnection, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return pc.LocalDescription(), nil
}

func toICECandidateInit(c *protocol.Candidate) pion.ICECandidateInit {
	return pion.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

func fromICECandidateInit(c pion.ICECandidateInit) *protocol.Candidate {
	return &protocol.Candidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
