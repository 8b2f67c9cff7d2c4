// Package sky provides angular geometry on the celestial sphere.
//
// All angles are in degrees unless a name says otherwise. Separations are
// returned in arcseconds because that is the unit match tolerances are
// expressed in.
//
// Sexagesimal conversion follows the usual astronomical conventions:
//   - Right ascension is written as hours, minutes, seconds (1h = 15°)
//   - Declination is written as degrees, arcminutes, arcseconds
//   - The sign of a declination belongs to the whole angle, not only to the
//     degrees field, so "-00 30 00" is -0.5° and not +0.5°
package sky
