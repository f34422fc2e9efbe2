package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fridge/internal/fridge"
	"fridge/internal/location"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage known stores",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME LAT,LON",
		Short: "Remember a store location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			p, err := location.ParsePoint(args[1])
			if err != nil {
				return err
			}
			s := fridge.NearbyStore{ID: uuid.NewString(), Name: strings.TrimSpace(args[0]), Point: p}
			err = st.PutStore(cmd.Context(), s)
			ctx.audit(cmd.Context(), "store.add", s.ID, err, s.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added store %s at %s\n", s.Name, p)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			stores, err := st.ListStores(cmd.Context())
			if err != nil {
				return err
			}
			if len(stores) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stores")
				return nil
			}
			rows := make([][]string, 0, len(stores))
			for _, s := range stores {
				rows = append(rows, []string{shortID(s.ID), s.Name, s.Point.String()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Location"}, rows, nil))
			return nil
		},
	})
	return cmd
}

func newZoneCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zone",
		Short: "Manage shop outlines",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME LAT,LON [LAT,LON...]",
		Short: "Remember a zone by its outline points",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			z := fridge.NearbyZone{ID: uuid.NewString(), Name: strings.TrimSpace(args[0])}
			for _, raw := range args[1:] {
				p, err := location.ParsePoint(raw)
				if err != nil {
					return err
				}
				z.Points = append(z.Points, p)
			}
			err = st.PutZone(cmd.Context(), z)
			ctx.audit(cmd.Context(), "zone.add", z.ID, err, z.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added zone %s with %d points\n", z.Name, len(z.Points))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List zones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			zones, err := st.ListZones(cmd.Context())
			if err != nil {
				return err
			}
			if len(zones) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No zones")
				return nil
			}
			rows := make([][]string, 0, len(zones))
			for _, z := range zones {
				first := "-"
				if len(z.Points) > 0 {
					first = z.Points[0].String()
				}
				rows = append(rows, []string{shortID(z.ID), z.Name, strconv.Itoa(len(z.Points)), first})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Points", "First point"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	})
	return cmd
}

func newNearbyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "Find supermarkets around a location",
	}
	var (
		at     string
		radius float64
		save   bool
	)
	search := &cobra.Command{
		Use:   "search",
		Short: "Query OpenStreetMap for supermarkets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.open()
			if err != nil {
				return err
			}
			var p fridge.Point
			if at != "" {
				if p, err = location.ParsePoint(at); err != nil {
					return err
				}
			} else {
				var ok bool
				p, ok, err = a.Location().Current(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no location: pass --at LAT,LON or configure fridge.location")
				}
			}
			if radius <= 0 {
				radius = a.RadiusMeters()
			}

			res, err := a.Overpass().Supermarkets(cmd.Context(), p, radius)
			if err != nil {
				return err
			}

			type hit struct {
				kind, id, name string
				dist           float64
			}
			hits := make([]hit, 0, len(res.Stores)+len(res.Zones))
			for _, s := range res.Stores {
				hits = append(hits, hit{"store", s.ID, s.Name, fridge.Distance(p, s.Point)})
			}
			for _, z := range res.Zones {
				d, _ := fridge.ZoneDistance(p, z)
				hits = append(hits, hit{"zone", z.ID, z.Name, d})
			}
			if len(hits) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No supermarkets within %s of %s\n", metres(radius), p)
				return nil
			}
			sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{h.kind, h.name, metres(h.dist), h.id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Kind", "Name", "Distance", "OSM"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))

			if !save {
				return nil
			}
			st := a.Store()
			for _, s := range res.Stores {
				if err := st.PutStore(cmd.Context(), s); err != nil {
					return err
				}
			}
			for _, z := range res.Zones {
				if err := st.PutZone(cmd.Context(), z); err != nil {
					return err
				}
			}
			ctx.audit(cmd.Context(), "nearby.import", p.String(), nil, fmt.Sprintf("%d stores, %d zones", len(res.Stores), len(res.Zones)))
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d stores and %d zones\n", len(res.Stores), len(res.Zones))
			return nil
		},
	}
	search.Flags().StringVar(&at, "at", "", "Search around LAT,LON instead of the configured location")
	search.Flags().Float64Var(&radius, "radius", 0, "Search radius in metres (default fridge.radius_meters)")
	search.Flags().BoolVar(&save, "import", false, "Save the results as stores and zones")
	cmd.AddCommand(search)
	return cmd
}
